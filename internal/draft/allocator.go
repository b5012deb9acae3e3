package draft

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NumberPrefix is the literal prefix of every allocated invoice number.
const NumberPrefix = "INV"

// Allocator produces the next sequential invoice number by scanning the
// principal's existing invoices. It runs once per create-mode session,
// before the draft becomes submittable.
type Allocator struct {
	Gateway Gateway
	Now     func() time.Time
}

// Next returns INV-<max+1> zero-padded to three digits, growing wider past
// 999. Suffixes that do not parse as integers are skipped. If the list fetch
// fails, a best-effort local number is derived from the current timestamp;
// that fallback carries no uniqueness guarantee and is never surfaced as an
// error.
func (a Allocator) Next(ctx context.Context) string {
	now := a.Now
	if now == nil {
		now = time.Now
	}
	existing, err := a.Gateway.List(ctx)
	if err != nil {
		ms := strconv.FormatInt(now().UnixMilli(), 10)
		return NumberPrefix + "-" + ms[len(ms)-5:]
	}
	maxNum := 0
	for _, inv := range existing {
		parts := strings.Split(inv.InvoiceNumber, "-")
		if len(parts) < 2 {
			continue
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		if n > maxNum {
			maxNum = n
		}
	}
	return fmt.Sprintf("%s-%03d", NumberPrefix, maxNum+1)
}
