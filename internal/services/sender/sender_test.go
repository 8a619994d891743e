package sender

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/vocal/internal/lib/smtp"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) Sender() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSMTPClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

type MockSMTPWriter struct {
	mock.Mock
}

func (m *MockSMTPWriter) Write(p []byte) (n int, err error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockSMTPWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const emailBody = `{"challenge_id":"0b7c4f2e-8f7e-4d8e-9d59-2b4f5d7c1a11","challenge_type":"email","user_profile_id":"6a1c0f7a-3a55-4f0c-9d0e-5c2b7e1d9f00","recipient":"jesse@dhillon.com","code":"123456","issued_at":"2024-01-01T00:00:00Z"}`

func TestService_SendEmailOTP(t *testing.T) {
	tests := []struct {
		name          string
		body          []byte
		setupMocks    func(*MockTransport)
		expectedError bool
		errorMessage  string
	}{
		{
			name: "success",
			body: []byte(emailBody),
			setupMocks: func(t *MockTransport) {
				mockClient := new(MockSMTPClient)
				mockWriter := new(MockSMTPWriter)
				t.On("Sender").Return("noreply@vocal.example")
				t.On("Connect").Return(mockClient, nil).Once()
				mockClient.On("Mail", "noreply@vocal.example").Return(nil).Once()
				mockClient.On("Rcpt", "jesse@dhillon.com").Return(nil).Once()
				mockClient.On("Data").Return(mockWriter, nil).Once()
				mockWriter.On("Write", mock.MatchedBy(func(p []byte) bool {
					text := string(p)
					return strings.Contains(text, "To: jesse@dhillon.com") &&
						strings.Contains(text, "Subject: "+emailSubject) &&
						strings.Contains(text, "123456")
				})).Return(100, nil).Once()
				mockWriter.On("Close").Return(nil).Once()
				mockClient.On("Quit").Return(nil).Once()
				mockClient.On("Close").Return(nil).Once()
			},
		},
		{
			name:          "invalid JSON",
			body:          []byte(`invalid json`),
			setupMocks:    func(_ *MockTransport) {},
			expectedError: true,
			errorMessage:  "error unmarshalling message",
		},
		{
			name:          "missing code",
			body:          []byte(`{"challenge_type":"email","recipient":"jesse@dhillon.com"}`),
			setupMocks:    func(_ *MockTransport) {},
			expectedError: true,
			errorMessage:  "no recipient or code",
		},
		{
			name:          "wrong queue",
			body:          []byte(`{"challenge_type":"sms","recipient":"+14155551234","code":"1"}`),
			setupMocks:    func(_ *MockTransport) {},
			expectedError: true,
			errorMessage:  "unexpected challenge type",
		},
		{
			name: "SMTP connection error",
			body: []byte(emailBody),
			setupMocks: func(t *MockTransport) {
				t.On("Sender").Return("noreply@vocal.example")
				t.On("Connect").Return(nil, errors.New("connection error")).Once()
			},
			expectedError: true,
			errorMessage:  "connection error",
		},
		{
			name: "recipient rejected",
			body: []byte(emailBody),
			setupMocks: func(t *MockTransport) {
				mockClient := new(MockSMTPClient)
				t.On("Sender").Return("noreply@vocal.example")
				t.On("Connect").Return(mockClient, nil).Once()
				mockClient.On("Mail", "noreply@vocal.example").Return(nil).Once()
				mockClient.On("Rcpt", "jesse@dhillon.com").Return(errors.New("550 mailbox unavailable")).Once()
				mockClient.On("Close").Return(nil).Once()
			},
			expectedError: true,
			errorMessage:  "550",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			tt.setupMocks(transport)
			service := New(transport, newNoopLogger())

			err := service.SendEmailOTP(tt.body)
			if tt.expectedError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMessage)
			} else {
				assert.NoError(t, err)
			}
			transport.AssertExpectations(t)
		})
	}
}

func TestService_LogSMSOTP(t *testing.T) {
	var buf bytes.Buffer
	transport := new(MockTransport)
	service := New(transport, slog.New(slog.NewJSONHandler(&buf, nil)))

	assert.NoError(t, service.LogSMSOTP([]byte(`{"challenge_type":"sms","recipient":"+14155551234","code":"654321"}`)))
	assert.Contains(t, buf.String(), "sms delivery is not configured")
	assert.NotContains(t, buf.String(), "654321")

	assert.Error(t, service.LogSMSOTP([]byte(`{`)))
	transport.AssertNotCalled(t, "Connect")
	transport.AssertNotCalled(t, "Sender")
}
