package whatsapp

import "testing"

func TestFormatAddress(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"leading zero swapped for country code", "0812345678", "62812345678@s.whatsapp.net"},
		{"country code kept", "62812345678", "62812345678@s.whatsapp.net"},
		{"country code prepended", "812345678", "62812345678@s.whatsapp.net"},
		{"formatting characters stripped", "+62 812-345-678", "62812345678@s.whatsapp.net"},
		{"direct address passes through", "62812345678@s.whatsapp.net", "62812345678@s.whatsapp.net"},
		{"group address passes through", "1234567890-987654@g.us", "1234567890-987654@g.us"},
		{"surrounding whitespace trimmed", "  0812345678 ", "62812345678@s.whatsapp.net"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatAddress(tc.in); got != tc.want {
				t.Errorf("FormatAddress(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestFormatAddressIdempotent(t *testing.T) {
	inputs := []string{"0812345678", "62812345678", "1234567890-987654@g.us"}
	for _, in := range inputs {
		once := FormatAddress(in)
		if twice := FormatAddress(once); twice != once {
			t.Errorf("FormatAddress not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestIsGroupAddress(t *testing.T) {
	if !IsGroupAddress("1234567890-987654@g.us") {
		t.Error("group address not recognized")
	}
	if IsGroupAddress("62812345678@s.whatsapp.net") {
		t.Error("direct address misclassified as group")
	}
}

func TestStripAddressSuffix(t *testing.T) {
	if got := StripAddressSuffix("62812345678@s.whatsapp.net"); got != "62812345678" {
		t.Errorf("got %q, want bare number", got)
	}
	if got := StripAddressSuffix("62812345678"); got != "62812345678" {
		t.Errorf("bare input changed to %q", got)
	}
}
