package auth

import (
	"github.com/stretchr/testify/mock"
)

type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) Verify(credential string) (int, error) {
	args := m.Called(credential)
	return args.Int(0), args.Error(1)
}
