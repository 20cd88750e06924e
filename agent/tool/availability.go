// Package tool holds the mock booking-system integration. The weekend rule
// stands in for a real availability backend; the Checker interface is the
// seam to replace it without touching the orchestrator.
package tool

import (
	"fmt"
	"time"

	contractx "github.com/grandhotel/aria/agent/contract"
)

const dateLayout = "2006-01-02"

// Verdict is the availability answer for one date and room category.
type Verdict struct {
	RoomType  string
	Date      string
	Available bool
	Price     string
}

// Note renders the verdict as the context line injected into the prompt.
func (v Verdict) Note() string {
	if !v.Available {
		return fmt.Sprintf("System Note: %s is SOLD OUT on %s.", v.RoomType, v.Date)
	}
	return fmt.Sprintf("System Note: %s is AVAILABLE on %s. Price: %s.", v.RoomType, v.Date, v.Price)
}

// Checker resolves availability for a date string in YYYY-MM-DD form.
type Checker interface {
	Check(dateStr, roomType string) (Verdict, error)
}

// WeekendRule is deterministic and side-effect free: Friday and Saturday
// nights are sold out, every other night is available at the fixed quote.
type WeekendRule struct {
	price string
}

var _ Checker = WeekendRule{}

func NewWeekendRule() WeekendRule {
	return WeekendRule{price: "$150"}
}

func (r WeekendRule) Check(dateStr, roomType string) (Verdict, error) {
	day, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %q", contractx.ErrInvalidDate, dateStr)
	}

	v := Verdict{
		RoomType: roomType,
		Date:     dateStr,
		Price:    r.price,
	}
	switch day.Weekday() {
	case time.Friday, time.Saturday:
		v.Available = false
	default:
		v.Available = true
	}
	return v, nil
}
