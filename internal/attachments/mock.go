package attachments

import (
	"github.com/stretchr/testify/mock"
)

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(attachmentId int) (Info, error) {
	args := m.Called(attachmentId)
	return args.Get(0).(Info), args.Error(1)
}
