package validation

import "testing"

func TestValidateRecipient(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"plain number", "62812345678", false},
		{"formatted number", "+62 812-345-678", false},
		{"full address", "62812345678@s.whatsapp.net", false},
		{"group address", "1234567890-987654@g.us", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"too short", "12345", true},
		{"letters only", "not-a-number", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRecipient(tc.in)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateRecipient(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	if err := ValidateURL("https://example.com/hook"); err != nil {
		t.Errorf("valid url rejected: %v", err)
	}
	if err := ValidateURL(""); err == nil {
		t.Error("empty url accepted")
	}
	if err := ValidateURL("not a url"); err == nil {
		t.Error("malformed url accepted")
	}
}
