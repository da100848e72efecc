package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/stockhunter/internal/domain"
)

func TestKRCapabilityValidID(t *testing.T) {
	c := NewKRCapability(nil, domain.MarketKOSPI)
	assert.True(t, c.ValidID("005930"))
	assert.False(t, c.ValidID("AAPL"))
	assert.False(t, c.ValidID("12345"))
}

func TestKRCapabilityHeuristics(t *testing.T) {
	c := NewKRCapability(nil, domain.MarketKOSPI)
	assert.True(t, c.LooksLikeETF("KODEX 200ETF"))
	assert.True(t, c.LooksLikeETN("삼성 레버리지 ETN"))
	assert.True(t, c.LooksLikeManagementCompany("한국투자신탁운용"))
	assert.False(t, c.LooksLikeETF("삼성전자"))
}

func TestUSCapabilityValidID(t *testing.T) {
	c := NewUSCapability(nil, domain.MarketNASDAQ)
	assert.True(t, c.ValidID("AAPL"))
	assert.False(t, c.ValidID("aapl"))
	assert.False(t, c.ValidID("TOOLONGG"))
}

func TestUSCapabilityETFList(t *testing.T) {
	c := NewUSCapability(nil, domain.MarketNASDAQ)
	assert.True(t, c.LooksLikeETF("QQQ"))
	assert.False(t, c.LooksLikeETF("AAPL"))
	assert.False(t, c.LooksLikeETN("QQQ"))
}
