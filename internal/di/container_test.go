package di

import (
	"testing"

	"github.com/justsurfingit/applytrail/internal/config"
	"github.com/justsurfingit/applytrail/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildContainer_ResolvesPipelineWithoutDatabase(t *testing.T) {
	container, err := BuildContainer()
	require.NoError(t, err)

	err = container.Invoke(func(logger *zap.Logger, extractor services.Extractor, mailboxes services.MailboxConnector, syncCfg config.SyncConfig) {
		assert.NotNil(t, logger)
		assert.NotNil(t, extractor)
		assert.NotNil(t, mailboxes)
		assert.Positive(t, syncCfg.Interval)
	})
	assert.NoError(t, err)
}
