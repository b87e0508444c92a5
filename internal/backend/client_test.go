package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ahlan-reserve/internal/domain"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, nil, nil)
	require.NoError(t, err)
	return c
}

func TestClient_GetApartment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apartments/17/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"id":17,"object":{"id":3,"name":"Navoiy 108K"},"roomNumber":"45",
			"floor":7,"rooms":3,"area":82.5,"price":"50000000.00","status":"Bo‘sh"}`)
	})

	apt, err := c.GetApartment(context.Background(), Session{Token: "tok"}, 17)
	require.NoError(t, err)
	assert.Equal(t, int64(3), apt.ObjectID)
	assert.Equal(t, "Navoiy 108K", apt.ObjectName)
	assert.Equal(t, "45", apt.RoomNumber)
	assert.True(t, decimal.RequireFromString("50000000").Equal(apt.Price))
	assert.True(t, decimal.RequireFromString("82.5").Equal(apt.Area))
	assert.True(t, apt.Reservable())
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[]`)
	})
	clients, err := c.ListClients(context.Background(), Session{})
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestClient_ListClientsFollowsPages(t *testing.T) {
	var srvURL string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mijoz", r.URL.Query().Get("user_type"))
		if r.URL.Query().Get("page") == "2" {
			_, _ = io.WriteString(w, `{"next":null,"results":[{"id":2,"fio":"Karimova Dilnoza","phone_number":"+998"}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"next":"`+srvURL+`/users/?user_type=mijoz&page=2","results":[
			{"id":1,"fio":"Aliyev Vali","phone_number":"+998901","kafil_fio":"Aliyev Karim","kafil_phone_number":"+998902","kafil_address":null}]}`)
	})
	srvURL = c.baseURL.Scheme + "://" + c.baseURL.Host

	clients, err := c.ListClients(context.Background(), Session{Token: "t"})
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "Aliyev Vali", clients[0].FullName)
	require.NotNil(t, clients[0].Guarantor)
	assert.Equal(t, "Aliyev Karim", clients[0].Guarantor.Name)
	assert.Nil(t, clients[1].Guarantor)
}

func TestClient_CreateClientSendsPassportAsPassword(t *testing.T) {
	nc := domain.NewClient{
		FullName: gofakeit.Name(),
		Phone:    gofakeit.Phone(),
		Passport: "AB7654321",
		Address:  gofakeit.City(),
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, nc.FullName, got["fio"])
		assert.Equal(t, "AB7654321", got["password"])
		assert.Equal(t, "mijoz", got["user_type"])
		assert.Nil(t, got["kafil_fio"])

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":501,"fio":"ignored"}`)
	})

	created, err := c.CreateClient(context.Background(), Session{Token: "t"}, nc)
	require.NoError(t, err)
	assert.Equal(t, int64(501), created.ID)
	assert.Equal(t, nc.FullName, created.FullName)
	assert.Equal(t, "AB7654321", created.Passport)
}

func TestClient_CreatePayment(t *testing.T) {
	plan := domain.PaymentPlan{
		ApartmentID:    17,
		ClientID:       501,
		Type:           domain.PaymentInstallment,
		TotalAmount:    decimal.NewFromInt(50000000),
		InitialPayment: decimal.NewFromInt(15000000),
		InterestRate:   decimal.Zero,
		DurationMonths: 6,
		MonthlyPayment: decimal.RequireFromString("5833333.33"),
		DueDay:         1,
		PaidAmount:     decimal.Zero,
		Status:         domain.PaymentPending,
		Notes:          "test",
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/", r.URL.Path)
		var got map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, float64(501), got["user"])
		assert.Equal(t, float64(17), got["apartment"])
		assert.Equal(t, "muddatli", got["payment_type"])
		assert.Equal(t, "5833333.33", got["monthly_payment"])
		assert.Equal(t, float64(6), got["duration_months"])
		assert.Equal(t, float64(1), got["due_date"])
		assert.Equal(t, "pending", got["status"])

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":9001}`)
	})

	created, err := c.CreatePayment(context.Background(), Session{Token: "t"}, plan)
	require.NoError(t, err)
	assert.Equal(t, int64(9001), created.ID)
	assert.Equal(t, plan.ClientID, created.ClientID)
}

func TestClient_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantIs  error
		message string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Token yaroqsiz"}`, ErrUnauthorized, "Token yaroqsiz"},
		{"not found", http.StatusNotFound, `{"detail":"Topilmadi."}`, ErrNotFound, "Topilmadi."},
		{"validation", http.StatusBadRequest, `{"phone_number":["Bu raqam band"],"fio":["Majburiy maydon"]}`, nil, "Majburiy maydon"},
		{"server error", http.StatusInternalServerError, `<html>oops</html>`, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.CreateClient(context.Background(), Session{Token: "t"}, domain.NewClient{FullName: "x"})
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.FirstFieldMessage())
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil, nil)
	require.NoError(t, err)

	_, err = c.GetApartment(context.Background(), Session{}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_RateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `[]`)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, RequestsPerSecond: 0.001, Burst: 1}, nil, nil)
	require.NoError(t, err)

	_, err = c.ListClients(context.Background(), Session{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.ListClients(ctx, Session{})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestAPIError_FirstFieldMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"detail":"Ruxsat yo'q","a":["b"]}`, "Ruxsat yo'q"},
		{`{"z":["oxirgi"],"b":["birinchi","ikkinchi"]}`, "birinchi"},
		{`{"b":"matn"}`, "matn"},
		{`{"b":{"c":["ichki"]}}`, "ichki"},
		{`{"b":[]}`, ""},
		{`["list"]`, ""},
		{`not json`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			assert.Equal(t, tt.want, newAPIError("op", 400, []byte(tt.body)).FirstFieldMessage())
		})
	}
}
