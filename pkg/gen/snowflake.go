package gen

import (
	"fmt"

	"ftc-platform/pkg/config"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("snowflake", fx.Provide(NewNode))

// NewNode builds the id generator for this process. Every replica needs its
// own NODE_ID or ids collide.
func NewNode(cfg *config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("init snowflake node %d: %w", cfg.NodeID, err)
	}
	zap.L().Info("snowflake node initialized", zap.Int64("node_id", cfg.NodeID))
	return node, nil
}
