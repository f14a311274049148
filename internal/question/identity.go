package question

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

// StableID derives a content-addressed id from the question text, the
// canonical option order and the correct index.
func StableID(q Question) string {
	key := q.Question + "|" + strings.Join(q.Options, "|") + "|" + strconv.Itoa(q.Correct)
	sum := md5.Sum([]byte(key))
	return "q_" + hex.EncodeToString(sum[:])[:8]
}

// AssignIDs sets ID on every question in place.
func AssignIDs(qs []Question) {
	for i := range qs {
		qs[i].ID = StableID(qs[i])
	}
}
