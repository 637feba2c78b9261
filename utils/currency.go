package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatINR formats an amount in Indian Rupees with lakh grouping.
// Example: 1234567.5 -> "₹12,34,567.50"
func FormatINR(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	paise := int64(math.Round(amount * 100))
	integer := paise / 100
	decimal := paise % 100

	digits := fmt.Sprintf("%d", integer)
	if len(digits) > 3 {
		// 3 digit terakhir, sisanya dikelompokkan per 2 digit
		head := digits[:len(digits)-3]
		tail := digits[len(digits)-3:]

		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		digits = strings.Join(groups, ",") + "," + tail
	}

	return fmt.Sprintf("%s₹%s.%02d", sign, digits, decimal)
}
