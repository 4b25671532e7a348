package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synergyayush/lookindharamshala/pkg/config"
)

func TestNewWhatsAppCloudSender(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.WhatsAppConfig
		wantErr bool
	}{
		{
			name:    "Valid credentials",
			cfg:     config.WhatsAppConfig{AccessToken: "test_token", PhoneNumberID: "123456789"},
			wantErr: false,
		},
		{
			name:    "Missing access token",
			cfg:     config.WhatsAppConfig{PhoneNumberID: "123456789"},
			wantErr: true,
		},
		{
			name:    "Missing phone number ID",
			cfg:     config.WhatsAppConfig{AccessToken: "test_token"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := NewWhatsAppCloudSender(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://graph.facebook.com/v18.0", sender.baseURL)
		})
	}
}

func TestWhatsAppCloudSender_SendText(t *testing.T) {
	tests := []struct {
		name           string
		to             string
		mockStatusCode int
		mockResponse   string
		wantErr        bool
	}{
		{
			name:           "Successful text send",
			to:             "+91 98827-70709",
			mockStatusCode: http.StatusOK,
			mockResponse:   `{"messaging_product":"whatsapp","messages":[{"id":"wamid.text123"}]}`,
		},
		{
			name:           "API rate limit error",
			to:             "+919882770709",
			mockStatusCode: http.StatusTooManyRequests,
			mockResponse:   `{"error":{"message":"rate limited"}}`,
			wantErr:        true,
		},
		{
			name:           "No message id",
			to:             "+919882770709",
			mockStatusCode: http.StatusOK,
			mockResponse:   `{"messaging_product":"whatsapp","messages":[]}`,
			wantErr:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got WhatsAppTextMessage
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/123456789/messages", r.URL.Path)
				assert.Equal(t, "Bearer test_token", r.Header.Get("Authorization"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

				w.WriteHeader(tt.mockStatusCode)
				_, _ = w.Write([]byte(tt.mockResponse))
			}))
			defer server.Close()

			sender := &WhatsAppCloudSender{
				accessToken:   "test_token",
				phoneNumberID: "123456789",
				httpClient:    server.Client(),
				baseURL:       server.URL,
			}

			err := sender.SendText(context.Background(), tt.to, "Your business is live")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, "919882770709", got.To)
			assert.Equal(t, "text", got.Type)
			assert.Equal(t, "Your business is live", got.Text.Body)
		})
	}
}

func TestWhatsAppCloudSender_SendTextRejectsEmptyRecipient(t *testing.T) {
	sender := &WhatsAppCloudSender{accessToken: "t", phoneNumberID: "1", httpClient: http.DefaultClient, baseURL: "http://127.0.0.1:1"}

	err := sender.SendText(context.Background(), "n/a", "hi")
	assert.Error(t, err)
}
