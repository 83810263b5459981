package handlers

import "github.com/meshadmin/topomapper/server/ops"

type Deps interface {
	TopologyDB() ops.TopologyDB
}
