package billdesk

import "strconv"

// Rupees renders a whole-rupee amount with the fixed currency symbol and
// comma grouping, e.g. 75000 -> "₹75,000".
func Rupees(amount int) string {
	return "₹" + groupThousands(amount)
}

func groupThousands(n int) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return sign + s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return sign + string(out)
}
