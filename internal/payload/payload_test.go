package payload

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmpfetcher/internal/coerce"
	"fmpfetcher/internal/fetcher"
)

const listKey = "financialStatementList"

const batchBody = `{
	"financialStatementList": [
		{"symbol": "MSFT", "financials": [{"date": "2019-06-30", "Revenue": "125843000000.0"}]},
		{"symbol": "T", "financials": [{"date": "2018-12-31", "Revenue": "170756000000.0"}, {"date": "2017-12-31", "Revenue": "160546000000.0"}]}
	]
}`

const singleBody = `{"symbol": "T", "financials": [{"date": "2018-12-31", "revenue": 170756000000, "grossProfit": 91337000000}]}`

func decode(t *testing.T, body string, mode coerce.Mode) coerce.Value {
	t.Helper()
	v, err := coerce.Decode(body, mode)
	require.NoError(t, err)
	return v
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Shape
	}{
		{"batch", batchBody, ShapeBatch},
		{"single", singleBody, ShapeSingle},
		{"single capitalized", `{"Symbol": "T", "financials": []}`, ShapeSingle},
		{"error", `{"error": "Invalid API KEY"}`, ShapeError},
		{"error beats list", `{"error": "x", "financialStatementList": []}`, ShapeError},
		{"empty object", `{}`, ShapeUnknown},
		{"array", `[{"symbol": "T"}]`, ShapeUnknown},
		{"scalar", `"hello"`, ShapeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(decode(t, tt.body, coerce.ModeLegacy), listKey))
		})
	}
}

func TestNormalize_Batch(t *testing.T) {
	chunk, err := Normalize(decode(t, batchBody, coerce.ModeLegacy), listKey, []string{"MSFT", "T"})
	require.NoError(t, err)

	assert.Equal(t, ChunkSuccess, chunk.Kind)
	require.Len(t, chunk.Records, 2)
	assert.Equal(t, "MSFT", chunk.Records[0].Symbol)
	assert.Equal(t, "T", chunk.Records[1].Symbol)
	require.Len(t, chunk.Records[1].Financials, 2)

	date, _ := chunk.Records[1].Financials[0].Get("date")
	assert.Equal(t, coerce.NewDate(2018, 12, 31), date)
}

func TestNormalize_Single(t *testing.T) {
	chunk, err := Normalize(decode(t, singleBody, coerce.ModeNative), listKey, []string{"T"})
	require.NoError(t, err)

	assert.Equal(t, ChunkSuccess, chunk.Kind)
	require.Len(t, chunk.Records, 1)
	assert.Equal(t, "T", chunk.Records[0].Symbol)

	gp, _ := chunk.Records[0].Financials[0].Get("grossProfit")
	assert.Equal(t, coerce.Integer(91337000000), gp)
}

func TestNormalize_ErrorKeepsRequestedSymbols(t *testing.T) {
	requested := []string{"ORCL", "BADSYM"}
	chunk, err := Normalize(decode(t, `{"error": "Invalid symbol"}`, coerce.ModeLegacy), listKey, requested)
	require.NoError(t, err)

	assert.Equal(t, ChunkErrors, chunk.Kind)
	require.NotNil(t, chunk.Error)
	assert.Equal(t, []string{"ORCL", "BADSYM"}, chunk.Error.RequestedSymbols)
	assert.Equal(t, "ORCL,BADSYM", chunk.Error.Key())
	assert.Equal(t, fetcher.ErrorTypeAPI, chunk.Error.Kind)

	requested[0] = "MUTATED"
	assert.Equal(t, "ORCL", chunk.Error.RequestedSymbols[0])
}

func TestNormalize_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no known keys", `{"foo": 1}`},
		{"empty object", `{}`},
		{"list key not a list", `{"financialStatementList": {"symbol": "T"}}`},
		{"entry not an object", `{"financialStatementList": ["T"]}`},
		{"entry without symbol", `{"financialStatementList": [{"financials": []}]}`},
		{"financials missing", `{"symbol": "T"}`},
		{"financials not a list", `{"symbol": "T", "financials": "none"}`},
		{"period not an object", `{"symbol": "T", "financials": [1, 2]}`},
		{"top level array", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(decode(t, tt.body, coerce.ModeNative), listKey, []string{"T"})
			require.Error(t, err)
			assert.True(t, fetcher.IsType(err, fetcher.ErrorTypeSchema), "got %v", err)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, body := range []string{batchBody, singleBody} {
		first, err := Normalize(decode(t, body, coerce.ModeLegacy), listKey, []string{"MSFT", "T"})
		require.NoError(t, err)

		second, err := Normalize(first.Canonical(), listKey, []string{"MSFT", "T"})
		require.NoError(t, err)

		assert.Equal(t, first, second)
	}

	errChunk, err := Normalize(decode(t, `{"error": "x"}`, coerce.ModeLegacy), listKey, []string{"X"})
	require.NoError(t, err)
	again, err := Normalize(errChunk.Canonical(), listKey, []string{"X"})
	require.NoError(t, err)
	assert.Equal(t, errChunk, again)
}

func TestFromResponse(t *testing.T) {
	legacyURL := "https://financialmodelingprep.com/api/v3/financials/income-statement/MSFT,T"
	nativeURL := "https://financialmodelingprep.com/api/v3.1/financials/income-statement/T"

	t.Run("success legacy", func(t *testing.T) {
		chunk, err := FromResponse(&fetcher.Response{URL: legacyURL, StatusCode: 200, Body: batchBody}, nil, listKey, []string{"MSFT", "T"})
		require.NoError(t, err)
		assert.Equal(t, ChunkSuccess, chunk.Kind)
		rev, _ := chunk.Records[0].Financials[0].Get("Revenue")
		assert.Equal(t, coerce.Float(125843000000), rev)
	})

	t.Run("success native", func(t *testing.T) {
		body := `{"symbol": "T", "financials": [{"date": "2018-12-31", "revenue": "170756000000"}]}`
		chunk, err := FromResponse(&fetcher.Response{URL: nativeURL, StatusCode: 200, Body: body}, nil, listKey, []string{"T"})
		require.NoError(t, err)
		rev, _ := chunk.Records[0].Financials[0].Get("revenue")
		assert.Equal(t, coerce.String("170756000000"), rev)
	})

	t.Run("transport error", func(t *testing.T) {
		chunk, err := FromResponse(nil, fetcher.NewTimeoutError(context.DeadlineExceeded), listKey, []string{"T"})
		require.NoError(t, err)
		require.Equal(t, ChunkErrors, chunk.Kind)
		assert.Equal(t, fetcher.ErrorTypeTimeout, chunk.Error.Kind)
		msg, ok := chunk.Error.Raw.(*coerce.Object).Get(ErrorKey)
		require.True(t, ok)
		assert.Contains(t, coerce.Format(msg), "timed out")
	})

	t.Run("plain transport error", func(t *testing.T) {
		chunk, err := FromResponse(nil, errors.New("connection refused"), listKey, []string{"T"})
		require.NoError(t, err)
		assert.Equal(t, fetcher.ErrorTypeNetwork, chunk.Error.Kind)
	})

	t.Run("failing status with error payload", func(t *testing.T) {
		chunk, err := FromResponse(&fetcher.Response{URL: legacyURL, StatusCode: 401, Body: `{"error": "Invalid API KEY"}`}, nil, listKey, []string{"MSFT", "T"})
		require.NoError(t, err)
		require.Equal(t, ChunkErrors, chunk.Kind)
		assert.Equal(t, fetcher.ErrorTypeAPI, chunk.Error.Kind)
	})

	t.Run("failing status with html body", func(t *testing.T) {
		chunk, err := FromResponse(&fetcher.Response{URL: legacyURL, StatusCode: 503, Body: "<html>down</html>"}, nil, listKey, []string{"MSFT", "T"})
		require.NoError(t, err)
		require.Equal(t, ChunkErrors, chunk.Kind)
		assert.Equal(t, fetcher.ErrorTypeServer, chunk.Error.Kind)
		status, _ := chunk.Error.Raw.(*coerce.Object).Get("status")
		assert.Equal(t, coerce.Integer(503), status)
	})

	t.Run("ok status with invalid json", func(t *testing.T) {
		_, err := FromResponse(&fetcher.Response{URL: legacyURL, StatusCode: 200, Body: "not json"}, nil, listKey, []string{"T"})
		require.Error(t, err)
		assert.True(t, fetcher.IsType(err, fetcher.ErrorTypeDecode))
	})

	t.Run("ok status with unknown shape", func(t *testing.T) {
		_, err := FromResponse(&fetcher.Response{URL: legacyURL, StatusCode: 200, Body: `{}`}, nil, listKey, []string{"T"})
		require.Error(t, err)
		assert.True(t, fetcher.IsType(err, fetcher.ErrorTypeSchema))
	})
}

func TestFromValue(t *testing.T) {
	url := "https://financialmodelingprep.com/api/v3/company/profile/AAPL"

	t.Run("success coerces legacy values", func(t *testing.T) {
		body := `{"symbol": "AAPL", "profile": {"price": "232.1", "range": "142.0-233.47"}}`
		v, rec, err := FromValue(&fetcher.Response{URL: url, StatusCode: 200, Body: body}, nil, []string{"AAPL"})
		require.NoError(t, err)
		require.Nil(t, rec)

		profile, _ := v.(*coerce.Object).Get("profile")
		price, _ := profile.(*coerce.Object).Get("price")
		assert.Equal(t, coerce.Float(232.1), price)
		rng, _ := profile.(*coerce.Object).Get("range")
		assert.Equal(t, coerce.Range{Low: 142.0, High: 233.47}, rng)
	})

	t.Run("list payload", func(t *testing.T) {
		v, rec, err := FromValue(&fetcher.Response{URL: url, StatusCode: 200, Body: `[{"date": "2019-01-02"}]`}, nil, []string{"AAPL"})
		require.NoError(t, err)
		require.Nil(t, rec)
		assert.IsType(t, coerce.List{}, v)
	})

	t.Run("error payload", func(t *testing.T) {
		v, rec, err := FromValue(&fetcher.Response{URL: url, StatusCode: 200, Body: `{"error": "Invalid symbol"}`}, nil, []string{"AAPL"})
		require.NoError(t, err)
		assert.Nil(t, v)
		require.NotNil(t, rec)
		assert.Equal(t, fetcher.ErrorTypeAPI, rec.Kind)
		assert.Equal(t, "AAPL", rec.Key())
	})

	t.Run("failing status", func(t *testing.T) {
		_, rec, err := FromValue(&fetcher.Response{URL: url, StatusCode: 429, Body: "slow down"}, nil, []string{"AAPL"})
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, fetcher.ErrorTypeRateLimit, rec.Kind)
	})

	t.Run("transport error", func(t *testing.T) {
		_, rec, err := FromValue(nil, errors.New("connection reset"), []string{"AAPL"})
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, fetcher.ErrorTypeNetwork, rec.Kind)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, _, err := FromValue(&fetcher.Response{URL: url, StatusCode: 200, Body: "<html>"}, nil, []string{"AAPL"})
		assert.True(t, fetcher.IsType(err, fetcher.ErrorTypeDecode))
	})
}

func TestUnreturned(t *testing.T) {
	records := []SymbolRecord{{Symbol: "MSFT"}, {Symbol: "t"}}

	assert.Equal(t, []string{"NOPE"}, Unreturned([]string{"MSFT", "NOPE", "T"}, records))
	assert.Nil(t, Unreturned([]string{"T", "MSFT"}, records))
	assert.Equal(t, []string{"A"}, Unreturned([]string{"A"}, nil))
}

func TestNotReturned(t *testing.T) {
	rec := NotReturned([]string{"NOPE", "GONE"})

	assert.Equal(t, "NOPE,GONE", rec.Key())
	assert.Equal(t, fetcher.ErrorTypeAPI, rec.Kind)
	msg, ok := rec.Raw.(*coerce.Object).Get(ErrorKey)
	require.True(t, ok)
	assert.Equal(t, coerce.String("symbol not returned"), msg)
}
