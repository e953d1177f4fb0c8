package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/conversation-router/internal/model"
)

func TestValidateChain_Valid(t *testing.T) {
	configs := map[model.ChannelType]model.ChannelConfig{
		model.ChannelRealtime: {Type: model.ChannelRealtime, FallbackChannel: model.ChannelNormal},
		model.ChannelNormal:   {Type: model.ChannelNormal, FallbackChannel: model.ChannelHuman},
		model.ChannelHuman:    {Type: model.ChannelHuman},
	}
	assert.NoError(t, ValidateChain(configs))
}

func TestValidateChain_UnknownFallback(t *testing.T) {
	configs := map[model.ChannelType]model.ChannelConfig{
		model.ChannelNormal: {Type: model.ChannelNormal, FallbackChannel: "carrier_pigeon"},
	}
	assert.Error(t, ValidateChain(configs))
}

func TestValidateChain_Cycle(t *testing.T) {
	configs := map[model.ChannelType]model.ChannelConfig{
		model.ChannelRealtime: {Type: model.ChannelRealtime, FallbackChannel: model.ChannelNormal},
		model.ChannelNormal:   {Type: model.ChannelNormal, FallbackChannel: model.ChannelRealtime},
	}
	assert.Error(t, ValidateChain(configs))
}

func TestValidateChain_SelfCycle(t *testing.T) {
	configs := map[model.ChannelType]model.ChannelConfig{
		model.ChannelNormal: {Type: model.ChannelNormal, FallbackChannel: model.ChannelNormal},
	}
	assert.Error(t, ValidateChain(configs))
}

func TestValidateChain_RejectsHigherPriorityFallback(t *testing.T) {
	configs := map[model.ChannelType]model.ChannelConfig{
		model.ChannelNormal: {Type: model.ChannelNormal, FallbackChannel: model.ChannelHuman, Priority: 3},
		model.ChannelHuman:  {Type: model.ChannelHuman, Priority: 1},
	}
	assert.Error(t, ValidateChain(configs))
}

func TestFallbackChain_Order(t *testing.T) {
	configs := map[model.ChannelType]model.ChannelConfig{
		model.ChannelRealtime: {Type: model.ChannelRealtime, FallbackChannel: model.ChannelNormal},
		model.ChannelNormal:   {Type: model.ChannelNormal, FallbackChannel: model.ChannelHuman},
		model.ChannelHuman:    {Type: model.ChannelHuman},
	}
	require.NoError(t, ValidateChain(configs))

	assert.Equal(t, []model.ChannelType{model.ChannelNormal, model.ChannelHuman}, fallbackChain(configs, model.ChannelRealtime))
	assert.Equal(t, []model.ChannelType{model.ChannelHuman}, fallbackChain(configs, model.ChannelNormal))
	assert.Empty(t, fallbackChain(configs, model.ChannelHuman))
}
