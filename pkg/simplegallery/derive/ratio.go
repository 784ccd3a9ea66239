package derive

import "strconv"

// GCD returns the greatest common divisor of a and b.
func GCD(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// AspectRatio reduces width:height by their GCD, e.g. 4000x3000 -> "4:3".
func AspectRatio(width, height int) string {
	g := GCD(width, height)
	if g == 0 {
		return "0:0"
	}
	return strconv.Itoa(width/g) + ":" + strconv.Itoa(height/g)
}
