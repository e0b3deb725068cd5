package domain

import "strings"

// CleanText trims s and collapses internal whitespace runs to one space.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizePhone formats North American numbers as (XXX) XXX-XXXX and
// otherwise returns the trimmed input.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return phone
	}
	d := string(digits)
	return "(" + d[:3] + ") " + d[3:6] + "-" + d[6:]
}

// JoinAddress renders "street, city", dropping whichever part is empty.
func JoinAddress(street, city string) string {
	street, city = CleanText(street), CleanText(city)
	switch {
	case street == "":
		return city
	case city == "":
		return street
	}
	return street + ", " + city
}
