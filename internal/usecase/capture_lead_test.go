package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

func validCaptureInput() usecase.CaptureLeadInput {
	return usecase.CaptureLeadInput{
		UserID: "user-1",
		Email:  " Dana@Example.com ",
		Name:   "Dana",
		Phone:  "(555) 123-4567",
	}
}

// TestCaptureLead_Success - lead is stored, outreach appended and handed off
func TestCaptureLead_Success(t *testing.T) {
	leads := newMemLeads()
	conv := newMemConversations()
	deliverer := new(MockDeliverer)
	deliverer.On("Deliver", mock.Anything, mock.MatchedBy(func(req usecase.DeliveryRequest) bool {
		return req.Channel == entity.ChannelTexts &&
			req.To == "+15551234567" &&
			req.MessageType == entity.MessageInitialOutreach
	})).Return(nil)

	uc := usecase.NewCaptureLeadUseCase(leads, conv, deliverer, time.Second, zap.NewNop())

	out, err := uc.Execute(context.Background(), validCaptureInput())

	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, entity.LeadStatusNew, out.Status)

	lead, err := leads.FindByID(context.Background(), out.ID)
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", lead.Email)
	assert.Equal(t, "FORM", lead.Source)

	entries, err := conv.List(context.Background(), out.ID, entity.ConversationFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entity.MessageInitialOutreach, entries[0].MessageType)
	assert.Equal(t, entity.SenderAssistant, entries[0].Sender)
	assert.Contains(t, entries[0].Text, "Dana")
	deliverer.AssertExpectations(t)
}

// TestCaptureLead_CompensatesWhenOutreachFails - the lead is removed again
func TestCaptureLead_CompensatesWhenOutreachFails(t *testing.T) {
	leads := new(MockLeadRepository)
	conv := new(MockConversationRepository)
	deliverer := new(MockDeliverer)

	leads.On("Create", mock.Anything, mock.AnythingOfType("*entity.Lead")).Return(nil)
	conv.On("Append", mock.Anything, mock.AnythingOfType("*entity.ConversationEntry")).Return(errors.New("insert failed"))
	leads.On("Delete", mock.Anything, mock.AnythingOfType("string")).Return(nil)

	uc := usecase.NewCaptureLeadUseCase(leads, conv, deliverer, time.Second, zap.NewNop())

	out, err := uc.Execute(context.Background(), validCaptureInput())

	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, usecase.IsTechnicalError(err))
	leads.AssertCalled(t, "Delete", mock.Anything, mock.AnythingOfType("string"))
	deliverer.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
}

// TestCaptureLead_DuplicateEmail - second capture for the same user is rejected
func TestCaptureLead_DuplicateEmail(t *testing.T) {
	uc := usecase.NewCaptureLeadUseCase(newMemLeads(), newMemConversations(), nil, time.Second, zap.NewNop())

	_, err := uc.Execute(context.Background(), validCaptureInput())
	require.NoError(t, err)

	_, err = uc.Execute(context.Background(), validCaptureInput())

	var domainErr *usecase.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "LEAD_ALREADY_EXISTS", domainErr.Code)
}

// TestCaptureLead_ValidationError - nothing is written for bad input
func TestCaptureLead_ValidationError(t *testing.T) {
	leads := new(MockLeadRepository)
	uc := usecase.NewCaptureLeadUseCase(leads, new(MockConversationRepository), nil, time.Second, zap.NewNop())

	_, err := uc.Execute(context.Background(), usecase.CaptureLeadInput{Email: "not-an-email", Phone: "123"})

	var domainErr *usecase.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	assert.Contains(t, domainErr.Message, "user_id")
	assert.Contains(t, domainErr.Message, "email")
	assert.Contains(t, domainErr.Message, "phone")
	leads.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestCaptureLead_DeliveryFailureStillSucceeds - the handoff is best effort
func TestCaptureLead_DeliveryFailureStillSucceeds(t *testing.T) {
	deliverer := new(MockDeliverer)
	deliverer.On("Deliver", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

	uc := usecase.NewCaptureLeadUseCase(newMemLeads(), newMemConversations(), deliverer, time.Second, zap.NewNop())

	out, err := uc.Execute(context.Background(), validCaptureInput())

	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
}
