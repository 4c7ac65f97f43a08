// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package eventstore

import (
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinsight/vinsight/internal/models"
)

// Ordered accessor lists, one per logical field. Order is priority: the
// first key present in a document wins, so newer canonical names must
// precede legacy ones. This is the single place field-name tolerance
// lives; nothing else in the engine looks at raw document keys.
var (
	timeKeys    = []string{"ts", "timestamp", "createdAt", "created_at"}
	queryKeys   = []string{"query", "search_query", "queryNorm"}
	productKeys = []string{"productId", "product_id"}
	resultsKeys = []string{"resultsCount", "results_count", "numResults", "results"}

	// Revenue: integer minor units first, then major units scaled by 100.
	// String decimals are accepted for both.
	revenueCentsKeys = []string{"revenueCents", "revenue_cents"}
	revenueMajorKeys = []string{"revenue"}
)

// epochMillisFloor separates epoch seconds from epoch milliseconds.
// Numeric timestamps below 1e12 are seconds (1e12 ms is 2001, 1e12 s is
// the year 33658; no ambiguity for storefront data).
const epochMillisFloor = 1e12

// decodeEvent turns one raw document into a RawEvent. The second return
// is the skip reason ("" when the event is usable): "timestamp" when no
// timestamp variant parses, "empty_query" for a search with no query text
// under any name.
func decodeEvent(kind models.EventKind, storeID string, doc bson.M) (models.RawEvent, string) {
	ts, ok := extractTime(doc)
	if !ok {
		return models.RawEvent{}, "timestamp"
	}

	event := models.RawEvent{
		Kind:    kind,
		StoreID: storeID,
		Time:    ts,
		Query:   extractString(doc, queryKeys),
	}

	switch kind {
	case models.EventSearch:
		if strings.TrimSpace(event.Query) == "" {
			return models.RawEvent{}, "empty_query"
		}
		if n, ok := extractFloat(doc, resultsKeys); ok {
			event.ResultsCount = n
		}
	case models.EventClick:
		event.ProductID = extractString(doc, productKeys)
	case models.EventPurchase:
		event.ProductID = extractString(doc, productKeys)
		event.RevenueCents = extractRevenueCents(doc)
	}

	return event, ""
}

// extractTime returns the first recognizable timestamp in the document.
func extractTime(doc bson.M) (time.Time, bool) {
	for _, key := range timeKeys {
		v, present := doc[key]
		if !present {
			continue
		}
		if ts, ok := coerceTime(v); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

// coerceTime accepts the timestamp encodings seen in production: BSON
// Date, RFC 3339 string, and Unix epoch numbers in seconds or
// milliseconds.
func coerceTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC(), true
	case time.Time:
		return t.UTC(), true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UTC(), true
		}
		return time.Time{}, false
	case int32:
		return epochToTime(float64(t))
	case int64:
		return epochToTime(float64(t))
	case int:
		return epochToTime(float64(t))
	case float64:
		return epochToTime(t)
	default:
		return time.Time{}, false
	}
}

func epochToTime(epoch float64) (time.Time, bool) {
	if epoch <= 0 || math.IsNaN(epoch) || math.IsInf(epoch, 0) {
		return time.Time{}, false
	}
	if epoch < epochMillisFloor {
		sec, frac := math.Modf(epoch)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	}
	return time.UnixMilli(int64(epoch)).UTC(), true
}

// extractString returns the first string-valued key, converting ObjectIDs
// to their hex form. Empty strings do not stop the scan; a later variant
// may still carry the value.
func extractString(doc bson.M, keys []string) string {
	for _, key := range keys {
		switch s := doc[key].(type) {
		case string:
			if s != "" {
				return s
			}
		case primitive.ObjectID:
			return s.Hex()
		}
	}
	return ""
}

// extractFloat returns the first numeric value under any of the keys.
func extractFloat(doc bson.M, keys []string) (float64, bool) {
	for _, key := range keys {
		v, present := doc[key]
		if !present {
			continue
		}
		if f, ok := coerceFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

func coerceFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// extractRevenueCents reads purchase revenue in integer minor units.
// Cent-denominated fields are taken as-is; the legacy major-unit field is
// scaled by 100 with round-half-away to absorb float decimals.
func extractRevenueCents(doc bson.M) int64 {
	for _, key := range revenueCentsKeys {
		v, present := doc[key]
		if !present {
			continue
		}
		if f, ok := coerceFloat(v); ok {
			return int64(math.Round(f))
		}
	}
	for _, key := range revenueMajorKeys {
		v, present := doc[key]
		if !present {
			continue
		}
		if f, ok := coerceFloat(v); ok {
			return int64(math.Round(f * 100))
		}
	}
	return 0
}
