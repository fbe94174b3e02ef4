package incentives

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noisyBody = `callback_123(
{"data":[
  {"start_time":"2023-03-05T17:00:00.000Z","num_epochs_paid_over":"14","filled_epochs":3,
   "coins":[{"denom":"uosmo","amount":"1000000"},{"denom":"ibc/ABC","amount":250}]},
  {"start_time":"2023-12-31T23:59:59Z","num_epochs_paid_over":1,"filled_epochs":"1","coins":[]}
]}
);`

func TestPoolFormatsResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pool/7", r.URL.Path)
		_, _ = w.Write([]byte(noisyBody))
	}))
	defer srv.Close()

	got, err := New(srv.URL, time.Second).Pool(context.Background(), "7")
	require.NoError(t, err)

	want := "Start Time: 3/5/2023\n" +
		"Duration: 14 days\n" +
		"Elapsed: 3 days\n" +
		"Coin: uosmo, Amount: 1000000\n" +
		"Coin: ibc/ABC, Amount: 250\n" +
		"\n" +
		"Start Time: 12/31/2023\n" +
		"Duration: 1 days\n" +
		"Elapsed: 1 days\n" +
		"\n"
	assert.Equal(t, want, got)
}

func TestPoolEmptyData(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	got, err := New(srv.URL, time.Second).Pool(context.Background(), "9")
	require.NoError(t, err)
	assert.Equal(t, "No incentives found for pool 9.", got)
}

func TestFetchErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		is     error
	}{
		{name: "no json", status: http.StatusOK, body: "gateway says hi", is: ErrNoJSON},
		{name: "broken json", status: http.StatusOK, body: "{data: nope}"},
		{name: "server error", status: http.StatusBadGateway, body: `{"data":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, time.Second).Fetch(context.Background(), "1")
			require.Error(t, err)
			if tc.is != nil {
				assert.ErrorIs(t, err, tc.is)
			}
		})
	}
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1/2/2024", FormatDate("2024-01-02T00:00:00Z"))
	assert.Equal(t, "7/14/2022", FormatDate("2022-07-14"))
	assert.Equal(t, "Invalid Date", FormatDate("yesterday"))
}

func TestFlexInt(t *testing.T) {
	t.Parallel()

	resp, err := Decode([]byte(`{"data":[{"num_epochs_paid_over":"7","filled_epochs":2.0}]}`))
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, FlexInt(7), resp.Data[0].NumEpochsPaidOver)
	assert.Equal(t, FlexInt(2), resp.Data[0].FilledEpochs)
}
