package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BillNumberFunc produces a human-readable bill number for the given instant.
type BillNumberFunc func(now time.Time) string

// TimeBillNumber generates numbers like POS-20260901-153012-7F3A. The random
// suffix keeps two tills on the same second from colliding; the store still
// enforces uniqueness and the orchestrator retries once on conflict.
func TimeBillNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("POS-%s-%s", now.Format("20060102-150405"), suffix)
}
