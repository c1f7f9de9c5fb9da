package booking

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

func newTestRouter(gw AppointmentCreator) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", NewHandler(newTestService(gw), logging.New("error")).Routes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSubmitFormHandler(t *testing.T) {
	h := newTestRouter(&stubGateway{})

	rec := do(t, h, http.MethodPost, "/api/appointments",
		`{"appointment_type":"General Consultation","preferred_date":"2030-06-20","phone_number":"9876543210"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var ok submitResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ok))
	assert.True(t, ok.Success)
	assert.Equal(t, "appt-1", ok.Data.ID)

	rec = do(t, h, http.MethodPost, "/api/appointments", `{"phone_number":"12"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var bad submitResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&bad))
	assert.False(t, bad.Success)
	assert.Contains(t, bad.Feedback.Message, "minimum 10 digits")

	rec = do(t, h, http.MethodPost, "/api/appointments", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogHandler(t *testing.T) {
	rec := do(t, newTestRouter(&stubGateway{}), http.MethodGet, "/api/booking/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var c Catalog
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&c))
	assert.Len(t, c.TimeSlots, 13)
}

func TestWizardSessionHandlers(t *testing.T) {
	h := newTestRouter(&stubGateway{})

	rec := do(t, h, http.MethodPost, "/api/booking/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var d Draft
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&d))
	base := "/api/booking/sessions/" + d.ID

	rec = do(t, h, http.MethodPost, base+"/next", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "appointment_type")

	rec = do(t, h, http.MethodPut, base, `{"appointment_type":"emergency"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, base+"/next", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/submit", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/previous", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&d))
	assert.Equal(t, StepTypeSelection, d.Step)

	rec = do(t, h, http.MethodGet, "/api/booking/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
