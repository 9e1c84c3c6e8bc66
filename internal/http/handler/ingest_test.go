package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"propertybot/internal/brochure"
	"propertybot/internal/classify"
	"propertybot/internal/extract"
	"propertybot/internal/metrics"
	"propertybot/internal/model"
	repoMocks "propertybot/internal/repository/mocks"
	"propertybot/internal/rules"
	"propertybot/internal/service"
	serviceMocks "propertybot/internal/service/mocks"
	"propertybot/internal/storage"
)

const listingID = "0f8fad5b-d9cb-469f-a165-70867728950e"

func postJSON(app *fiber.App, path, body string) *http.Response {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	return resp
}

func TestProcessMessage(t *testing.T) {
	mockGw := new(serviceMocks.MockGateway)
	app := fiber.New()
	app.Post("/api/process-message", ProcessMessage(mockGw))

	t.Run("persisted", func(t *testing.T) {
		mockGw.On("Ingest", mock.Anything, mock.MatchedBy(func(m model.RawMessage) bool {
			return m.Kind == model.KindText &&
				m.Body == "Skyline Towers by Acme" &&
				m.SourceGroupID == "g1" &&
				m.SenderID == "971500000000" &&
				m.Timestamp.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
		})).Return(&service.IngestResult{
			Outcome: service.OutcomePersisted,
			Listing: &model.Listing{ID: listingID},
		}, nil).Once()

		resp := postJSON(app, "/api/process-message",
			`{"raw":"Skyline Towers by Acme","groupId":"g1","sender":"971500000000","timestamp":"1767225600"}`)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, listingID, body["id"])
		assert.Equal(t, "Message processed and saved.", body["message"])
		mockGw.AssertExpectations(t)
	})

	t.Run("rejected", func(t *testing.T) {
		mockGw.On("Ingest", mock.Anything, mock.Anything).
			Return(&service.IngestResult{Outcome: service.OutcomeRejected, Reason: "?"}, nil).Once()

		resp := postJSON(app, "/api/process-message", `{"raw":"any update?"}`)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "rejected", body["status"])
		assert.Empty(t, body["id"])
		mockGw.AssertExpectations(t)
	})

	t.Run("persist failure", func(t *testing.T) {
		mockGw.On("Ingest", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: %w", service.ErrPersistFailed, errors.New("conn reset"))).Once()

		resp := postJSON(app, "/api/process-message", `{"raw":"Skyline Towers by Acme"}`)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "PERSIST_FAILED", body.Error.Code)
		assert.NotContains(t, body.Error.Message, "conn reset")
		mockGw.AssertExpectations(t)
	})

	invalid := []struct {
		name     string
		body     string
		wantCode string
	}{
		{name: "raw missing", body: `{"groupId":"g1"}`, wantCode: "INVALID_RAW"},
		{name: "raw is a number", body: `{"raw":42}`, wantCode: "INVALID_RAW"},
		{name: "raw is an object", body: `{"raw":{"text":"x"}}`, wantCode: "INVALID_RAW"},
		{name: "raw is null", body: `{"raw":null}`, wantCode: "INVALID_RAW"},
		{name: "raw is blank", body: `{"raw":"  \n\t"}`, wantCode: "INVALID_RAW"},
		{name: "not json", body: `raw=hello`, wantCode: "BAD_REQUEST"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(app, "/api/process-message", tt.body)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body errorPayload
			json.NewDecoder(resp.Body).Decode(&body)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
	mockGw.AssertNumberOfCalls(t, "Ingest", 3)
}

func newRealGateway(t *testing.T, repo *repoMocks.MockListingRepository, store storage.Storage) service.Gateway {
	t.Helper()
	r := rules.Default()
	p, err := metrics.NewPipeline(prometheus.NewRegistry())
	require.NoError(t, err)
	return service.NewGateway(
		classify.New(r.RejectPhrases),
		extract.MustNew(r),
		service.NewListingService(repo),
		brochure.NewCapturer(store),
		p,
	)
}

func TestProcessMessage_EndToEnd(t *testing.T) {
	repo := new(repoMocks.MockListingRepository)
	var stored *model.Listing
	repo.On("Create", mock.Anything, mock.MatchedBy(func(l *model.Listing) bool {
		stored = l
		return true
	})).Return(&model.Listing{ID: listingID}, nil).Once()

	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	app := fiber.New()
	app.Post("/api/process-message", ProcessMessage(newRealGateway(t, repo, store)))

	raw := "Skyline Towers by Acme\nStudio 450 sqft 299000\n2BR 900 sqft 550000"
	payload, _ := json.Marshal(map[string]string{"raw": raw})
	resp := postJSON(app, "/api/process-message", string(payload))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, stored)
	assert.Equal(t, "Skyline Towers", stored.Project)
	assert.Equal(t, "Acme", stored.Developer)
	assert.Equal(t, []float64{299000, 550000}, stored.Prices)
	assert.Equal(t, []string{"450 sqft", "900 sqft"}, stored.Sizes)
	assert.Equal(t, []string{"Studio", "2BR"}, stored.UnitTypes)
	assert.Equal(t, raw, stored.Notes)
	repo.AssertExpectations(t)
}

func TestProcessMessage_NonStringRawNeverPersists(t *testing.T) {
	repo := new(repoMocks.MockListingRepository)
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	app := fiber.New()
	app.Post("/api/process-message", ProcessMessage(newRealGateway(t, repo, store)))

	resp := postJSON(app, "/api/process-message", `{"raw":["Skyline Towers by Acme"]}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func multipartBrochure(t *testing.T, filename, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write(data)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func postBrochure(app *fiber.App, body *bytes.Buffer, ct string) *http.Response {
	req := httptest.NewRequest(http.MethodPost, "/api/process-brochure", body)
	req.Header.Set("Content-Type", ct)
	resp, _ := app.Test(req)
	return resp
}

func TestProcessBrochure(t *testing.T) {
	mockGw := new(serviceMocks.MockGateway)
	app := fiber.New()
	app.Post("/api/process-brochure", ProcessBrochure(mockGw))

	t.Run("stored and listed", func(t *testing.T) {
		mockGw.On("Ingest", mock.Anything, mock.MatchedBy(func(m model.RawMessage) bool {
			return m.Kind == model.KindDocument &&
				m.MediaFilename == "Creek Rise.pdf" &&
				string(m.MediaBytes) == "%PDF-1.7" &&
				m.SourceGroupName == "Launches"
		})).Return(&service.IngestResult{
			Outcome:  service.OutcomePersisted,
			Listing:  &model.Listing{ID: listingID},
			Brochure: &model.BrochureFile{Filename: "Creek_Rise.pdf"},
		}, nil).Once()

		body, ct := multipartBrochure(t, "Creek Rise.pdf", "application/pdf", []byte("%PDF-1.7"), map[string]string{"groupName": "Launches"})
		resp := postBrochure(app, body, ct)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var res map[string]string
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "Creek_Rise.pdf", res["brochure"])
		assert.Equal(t, listingID, res["id"])
		mockGw.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		body, ct := multipartBrochure(t, "", "", nil, map[string]string{"groupId": "g1"})
		resp := postBrochure(app, body, ct)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILE_REQUIRED", res.Error.Code)
	})

	t.Run("not a pdf", func(t *testing.T) {
		body, ct := multipartBrochure(t, "floor.png", "image/png", []byte("png"), nil)
		resp := postBrochure(app, body, ct)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "UNSUPPORTED_MEDIA", res.Error.Code)
	})

	t.Run("capture failure", func(t *testing.T) {
		mockGw.On("Ingest", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: %w", service.ErrCaptureFailed, errors.New("disk full"))).Once()

		body, ct := multipartBrochure(t, "a.pdf", "application/pdf", []byte("%PDF"), nil)
		resp := postBrochure(app, body, ct)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "CAPTURE_FAILED", res.Error.Code)
		mockGw.AssertExpectations(t)
	})
}

func TestProcessBrochure_SameSanitizedNameOverwrites(t *testing.T) {
	repo := new(repoMocks.MockListingRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(&model.Listing{ID: listingID}, nil)

	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	app := fiber.New()
	app.Post("/api/process-brochure", ProcessBrochure(newRealGateway(t, repo, store)))

	for _, tc := range []struct{ name, data string }{
		{"Plan A.pdf", "first"},
		{"Plan@A.pdf", "second"},
	} {
		body, ct := multipartBrochure(t, tc.name, "application/pdf", []byte(tc.data), nil)
		resp := postBrochure(app, body, ct)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var res map[string]string
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "Plan_A.pdf", res["brochure"])
	}

	rc, _, err := store.Get(context.Background(), brochure.Key("Plan_A.pdf"))
	require.NoError(t, err)
	defer rc.Close()
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(rc)
	assert.Equal(t, "second", buf.String())
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, parseTimestamp("2026-01-01T04:00:00+04:00"))
	assert.Equal(t, want, parseTimestamp("1767225600"))
	assert.True(t, parseTimestamp("").IsZero())
	assert.True(t, parseTimestamp("yesterday").IsZero())
	assert.True(t, parseTimestamp("-5").IsZero())
}
