package ledger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dieti-tracker/internal/client"
	"dieti-tracker/internal/models"
)

// intakeServer stores food entries and serves today's total. The first
// totals request reads the total and then waits for gate.
type intakeServer struct {
	mu        sync.Mutex
	total     models.Macros
	gets      int
	firstRead chan struct{}
	gate      chan struct{}
}

func (s *intakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/food":
		var e models.FoodLogEntry
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.total = s.total.Add(e.Macros)
		s.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	case "/api/intake/today":
		s.mu.Lock()
		s.gets++
		n, total := s.gets, s.total
		s.mu.Unlock()
		if n == 1 {
			close(s.firstRead)
			<-s.gate
		}
		json.NewEncoder(w).Encode(models.DailyIntake{Date: models.Date(r.URL.Query().Get("date")), Macros: total})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestConcurrentPersistsSettleOnLatestServerTotals(t *testing.T) {
	srv := &intakeServer{firstRead: make(chan struct{}), gate: make(chan struct{})}
	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	var wg sync.WaitGroup
	var gateOnce sync.Once
	openGate := func() { gateOnce.Do(func() { close(srv.gate) }) }
	defer wg.Wait()
	defer openGate()

	finished := make(chan struct{}, 4)
	dispatch := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
			finished <- struct{}{}
		}()
	}

	q, err := NewQueue(nil)
	require.NoError(t, err)
	l := New(Session{UserID: "u1"}, client.New(httpSrv.URL, "token"), q, &recordingObserver{},
		WithClock(func() time.Time { return testNow }),
		WithLocation(time.UTC),
		WithTimeout(5*time.Second),
		WithDispatcher(dispatch),
	)

	item := &models.NutritionalInfo{Description: "arroz", Type: models.ItemTaco, Calorias: 1}
	_, err = l.RecordFood(item, 100)
	require.NoError(t, err)
	// the first entry's reconciliation has read 100 kcal and is still in flight
	<-srv.firstRead

	_, err = l.RecordFood(item, 50)
	require.NoError(t, err)
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("second persist waited on the earlier totals fetch")
	}

	openGate()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("first persist did not finish")
	}

	srv.mu.Lock()
	server := srv.total
	srv.mu.Unlock()
	_, local := l.Totals()
	assert.InDelta(t, 150, server.Calorias, 1e-9)
	assert.InDelta(t, server.Calorias, local.Calorias, 1e-9)
	assert.Equal(t, Clean, l.State())
}
