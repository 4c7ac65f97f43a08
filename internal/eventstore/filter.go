// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package eventstore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// eventWindowFilter matches one store's events inside [from, to) no matter
// which timestamp field or encoding the producer used. Each key expands to
// four range clauses; BSON range comparisons never cross types, so each
// clause only matches documents stored in that representation, and the
// seconds and milliseconds windows cannot overlap because modern epoch
// seconds sit far below epochMillisFloor.
func eventWindowFilter(storeID string, from, to time.Time) bson.M {
	from = from.UTC()
	to = to.UTC()

	or := make([]bson.M, 0, len(timeKeys)*4)
	for _, key := range timeKeys {
		or = append(or,
			bson.M{key: bson.M{"$gte": from, "$lt": to}},
			bson.M{key: bson.M{"$gte": from.Unix(), "$lt": to.Unix()}},
			bson.M{key: bson.M{"$gte": from.UnixMilli(), "$lt": to.UnixMilli()}},
			bson.M{key: bson.M{"$gte": from.Format(time.RFC3339), "$lt": to.Format(time.RFC3339)}},
		)
	}

	return bson.M{"$and": []bson.M{
		{"storeId": storeID},
		{"$or": or},
	}}
}

// catalogFilter matches one store's product documents.
func catalogFilter(storeID string) bson.M {
	return bson.M{"storeId": storeID}
}
