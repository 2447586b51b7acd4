package logger

import (
	"github.com/stretchr/testify/mock"
)

// MockLogger is a Logger recording its calls with testify's mock.
//
// Logging methods are recorded with two arguments, the message and the key/value slice, so an
// expectation on any fields is written as:
//
//	m.On("Error", "send failed", mock.Anything).Return()
type MockLogger struct {
	mock.Mock
}

var _ Logger = (*MockLogger)(nil)

// NewMockLogger creates a mock logger without expectations.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// AllowAll accepts any call, so that only the calls of interest need assertions.
// With returns the mock itself and Level returns InfoLevel.
func (m *MockLogger) AllowAll() *MockLogger {
	for _, method := range []string{"Debug", "Info", "Warn", "Error", "Fatal"} {
		m.On(method, mock.Anything, mock.Anything).Return().Maybe()
	}
	m.On("SetLevel", mock.Anything).Return().Maybe()
	m.On("Level").Return(InfoLevel).Maybe()
	m.On("With", mock.Anything).Return(m).Maybe()

	return m
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) { m.Called(msg, keysAndValues) }
func (m *MockLogger) Info(msg string, keysAndValues ...any)  { m.Called(msg, keysAndValues) }
func (m *MockLogger) Warn(msg string, keysAndValues ...any)  { m.Called(msg, keysAndValues) }
func (m *MockLogger) Error(msg string, keysAndValues ...any) { m.Called(msg, keysAndValues) }

// Fatal records the call; unlike the other backends it doesn't exit.
func (m *MockLogger) Fatal(msg string, keysAndValues ...any) { m.Called(msg, keysAndValues) }

func (m *MockLogger) SetLevel(level Level) {
	m.Called(level)
}

func (m *MockLogger) Level() Level {
	level, _ := m.Called().Get(0).(Level)
	return level
}

func (m *MockLogger) With(keyValues ...any) Logger {
	l, _ := m.Called(keyValues).Get(0).(Logger)
	return l
}
