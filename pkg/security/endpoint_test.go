package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		url        string
		allowLocal bool
		ok         bool
	}{
		{"https://api.groq.com/openai/v1", false, true},
		{"https://bedrock-runtime.us-east-1.amazonaws.com", false, true},
		{"https://8.8.8.8/v1", false, true},
		{"http://api.groq.com/openai/v1", false, false},
		{"ftp://example.com", false, false},
		{"https://", false, false},
		{"https://localhost:9000", false, false},
		{"https://minio.local", false, false},
		{"https://127.0.0.1:9000", false, false},
		{"https://10.0.0.4", false, false},
		{"https://[fe80::1%25eth0]/", false, false},
		{"https://[::ffff:192.168.1.1]/", false, false},
		{"https://0.0.0.0", false, false},
		{"http://localhost:9000", true, true},
		{"http://127.0.0.1:4566", true, true},
		{"https://[fe80::1%25eth0]/", true, true},
		{"gopher://localhost", true, false},
		{"://bad", true, false},
	}
	for _, tt := range tests {
		err := ValidateEndpoint(tt.url, EndpointPolicy{AllowLocal: tt.allowLocal})
		if tt.ok {
			assert.NoError(t, err, tt.url)
		} else {
			assert.Error(t, err, tt.url)
		}
	}
}
