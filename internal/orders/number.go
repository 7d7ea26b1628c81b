package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const orderNumberPrefix = "EP"

// NewOrderNumber formats EP-YYYYMMDD-XXXXXX from the UTC date and the first
// six characters of a random id. Uniqueness is probabilistic.
func NewOrderNumber(now time.Time, newID func() uuid.UUID) string {
	if newID == nil {
		newID = uuid.New
	}
	suffix := strings.ToUpper(newID().String()[:6])
	return orderNumberPrefix + "-" + now.UTC().Format("20060102") + "-" + suffix
}
