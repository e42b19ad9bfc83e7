package nakama

import (
	"encoding/base64"
	"testing"
)

func TestExtractUserIDFromToken(t *testing.T) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"uid":"user-42"}`))
	token := "header." + payload + ".signature"

	uid, err := extractUserIDFromToken(token)
	if err != nil {
		t.Fatalf("extractUserIDFromToken error: %v", err)
	}
	if uid != "user-42" {
		t.Fatalf("uid = %s, want user-42", uid)
	}
}

func TestExtractUserIDFromTokenRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "NotAJWT", token: "plain-string"},
		{name: "BadBase64", token: "a.!!!.c"},
		{name: "MissingUID", token: "a." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"x"}`)) + ".c"},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if _, err := extractUserIDFromToken(test.token); err == nil {
				t.Fatal("expected error for malformed token")
			}
		})
	}
}
