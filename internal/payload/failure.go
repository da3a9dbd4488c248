package payload

import (
	"strings"

	"fmpfetcher/internal/coerce"
	"fmpfetcher/internal/fetcher"
)

// TransportFailure records a request the transport gave up on.
func TransportFailure(requested []string, err error) ErrorRecord {
	fe := fetcher.ClassifyRequestError(err)

	raw := coerce.NewObject()
	raw.Set(ErrorKey, coerce.String(err.Error()))
	if fe.StatusCode > 0 {
		raw.Set("status", coerce.Integer(fe.StatusCode))
	}

	return ErrorRecord{
		RequestedSymbols: append([]string(nil), requested...),
		Kind:             fe.Type,
		Raw:              raw,
	}
}

// StatusFailure records a response that came back with a failing status and
// a body that is not an error payload.
func StatusFailure(requested []string, resp *fetcher.Response) ErrorRecord {
	fe := fetcher.ClassifyHTTPError(resp.StatusCode)

	raw := coerce.NewObject()
	raw.Set(ErrorKey, coerce.String(fe.Error()))
	raw.Set("status", coerce.Integer(resp.StatusCode))
	if resp.Body != "" {
		raw.Set("body", coerce.String(resp.Body))
	}

	return ErrorRecord{
		RequestedSymbols: append([]string(nil), requested...),
		Kind:             fe.Type,
		Raw:              raw,
	}
}

// Unreturned lists the requested symbols that records has no entry for, in
// request order. Symbols compare case-insensitively.
func Unreturned(requested []string, records []SymbolRecord) []string {
	var missing []string
	for _, want := range requested {
		found := false
		for _, rec := range records {
			if strings.EqualFold(rec.Symbol, want) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	return missing
}

// NotReturned records symbols a successful response left out.
func NotReturned(symbols []string) ErrorRecord {
	raw := coerce.NewObject()
	raw.Set(ErrorKey, coerce.String("symbol not returned"))

	return ErrorRecord{
		RequestedSymbols: append([]string(nil), symbols...),
		Kind:             fetcher.ErrorTypeAPI,
		Raw:              raw,
	}
}

// FromResponse interprets one transport outcome for the symbols requested.
// Transport errors and failing statuses become error chunks; a successful
// response is decoded with the coercion mode its URL calls for and
// normalized. Decode and schema errors are returned, since they mean the
// response cannot be trusted at all.
func FromResponse(resp *fetcher.Response, fetchErr error, listKey string, requested []string) (Chunk, error) {
	if fetchErr != nil {
		rec := TransportFailure(requested, fetchErr)
		return Chunk{Kind: ChunkErrors, ListKey: listKey, Error: &rec}, nil
	}

	raw, err := coerce.Decode(resp.Body, coerce.ModeForURL(resp.URL))

	if !resp.OK() {
		if err == nil && Classify(raw, listKey) == ShapeError {
			return Normalize(raw, listKey, requested)
		}
		rec := StatusFailure(requested, resp)
		return Chunk{Kind: ChunkErrors, ListKey: listKey, Error: &rec}, nil
	}

	if err != nil {
		return Chunk{}, err
	}
	return Normalize(raw, listKey, requested)
}

// FromValue interprets one transport outcome for an endpoint that returns
// arbitrary JSON rather than statements. Failures and error payloads come
// back as an ErrorRecord; a body that cannot be decoded under a successful
// status is returned as an error.
func FromValue(resp *fetcher.Response, fetchErr error, requested []string) (coerce.Value, *ErrorRecord, error) {
	if fetchErr != nil {
		rec := TransportFailure(requested, fetchErr)
		return nil, &rec, nil
	}

	raw, err := coerce.Decode(resp.Body, coerce.ModeForURL(resp.URL))

	if !resp.OK() && (err != nil || !isErrorPayload(raw)) {
		rec := StatusFailure(requested, resp)
		return nil, &rec, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if isErrorPayload(raw) {
		return nil, &ErrorRecord{
			RequestedSymbols: append([]string(nil), requested...),
			Kind:             fetcher.ErrorTypeAPI,
			Raw:              raw,
		}, nil
	}
	return raw, nil, nil
}

func isErrorPayload(raw coerce.Value) bool {
	obj, ok := raw.(*coerce.Object)
	return ok && obj.Has(ErrorKey)
}
