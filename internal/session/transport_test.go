package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rejectRecorder struct {
	mu    sync.Mutex
	kinds []Kind
}

func (r *rejectRecorder) Reject(_ context.Context, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func statusServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/401"), strings.HasSuffix(r.URL.Path, "/validate-session"):
			w.WriteHeader(http.StatusUnauthorized)
		case strings.HasSuffix(r.URL.Path, "/403"):
			w.WriteHeader(http.StatusForbidden)
		case strings.HasSuffix(r.URL.Path, "/500"):
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, client *http.Client, url string) int {
	t.Helper()
	resp, err := client.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestTransportRejectsOnUnauthorizedAndForbidden(t *testing.T) {
	srv := statusServer(t)
	rec := &rejectRecorder{}
	client := &http.Client{Transport: &Transport{Rejecter: rec, Credentials: staticKind{kind: KindUser}}}

	assert.Equal(t, http.StatusOK, get(t, client, srv.URL+"/jobs"))
	assert.Equal(t, http.StatusInternalServerError, get(t, client, srv.URL+"/500"))
	assert.Empty(t, rec.kinds)

	assert.Equal(t, http.StatusUnauthorized, get(t, client, srv.URL+"/401"))
	assert.Equal(t, http.StatusForbidden, get(t, client, srv.URL+"/403"))
	assert.Equal(t, []Kind{KindUser, KindUser}, rec.kinds)
}

func TestTransportSkipsValidationEndpoint(t *testing.T) {
	srv := statusServer(t)
	rec := &rejectRecorder{}
	client := &http.Client{Transport: &Transport{
		Rejecter:    rec,
		Credentials: staticKind{kind: KindAdmin},
		Skip: func(r *http.Request) bool {
			return r.URL.String() == ValidationURL(srv.URL)
		},
	}}

	assert.Equal(t, http.StatusUnauthorized, get(t, client, ValidationURL(srv.URL)))
	assert.Empty(t, rec.kinds)

	get(t, client, srv.URL+"/401")
	assert.Equal(t, []Kind{KindAdmin}, rec.kinds)
}

func TestTransportIgnoresRejectionWithoutCredential(t *testing.T) {
	srv := statusServer(t)
	rec := &rejectRecorder{}
	client := &http.Client{Transport: &Transport{Rejecter: rec, Credentials: staticKind{kind: KindNone}}}

	get(t, client, srv.URL+"/401")
	assert.Empty(t, rec.kinds)
}

func TestTransportWithCoordinatorLogsOutOnFirstRejection(t *testing.T) {
	srv := statusServer(t)
	clock := newFakeClock()
	slot := &tokenSlot{token: signAdminToken(t, clock.Now().Add(time.Hour))}
	c, counter := newAdminCoordinator(t, clock, slot)
	rec := &recordedExpiry{}
	c.Subscribe(rec.listener)

	require.True(t, c.Validate(context.Background(), KindAdmin))

	client := &http.Client{Transport: &Transport{Rejecter: c, Credentials: staticKind{kind: KindAdmin}}}
	get(t, client, srv.URL+"/401")

	assert.Equal(t, 1, rec.count())
	_, cached := c.Last(KindAdmin)
	assert.False(t, cached)

	require.True(t, c.Validate(context.Background(), KindAdmin))
	assert.Equal(t, int32(2), counter.calls.Load())
}
