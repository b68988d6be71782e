package utils

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetUpLogrus(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	assert.NoError(t, SetUpLogrus("debug"))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	assert.NoError(t, SetUpLogrus(""))
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())

	assert.Error(t, SetUpLogrus("loud"))
}

func TestUseTtyBeforeOpen(t *testing.T) {
	_, err := UseTty()
	assert.Error(t, err)
	assert.NoError(t, CloseTty())
}
