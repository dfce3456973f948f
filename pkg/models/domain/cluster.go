package domain

import (
	"fmt"
	"time"
)

type GroupRole string

const (
	GroupRoleMaster GroupRole = "MASTER"
	GroupRoleCore   GroupRole = "CORE"
	GroupRoleTask   GroupRole = "TASK"
)

var groupRoles = []GroupRole{GroupRoleMaster, GroupRoleCore, GroupRoleTask}

// ParseGroupRole maps an instance group or fleet type reported by EMR onto a GroupRole.
func ParseGroupRole(s string) (GroupRole, error) {
	for _, r := range groupRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown group role %q", s)
}

type MarketType string

const (
	MarketOnDemand MarketType = "ON_DEMAND"
	MarketSpot     MarketType = "SPOT"
)

// TopologyKind names the model a cluster exposes its instances through.
// EMR clusters use exactly one of them.
type TopologyKind string

const (
	TopologyInstanceGroups TopologyKind = "instance_groups"
	TopologyInstanceFleets TopologyKind = "instance_fleets"
)

type EbsVolumeSpec struct {
	SizeGB     int32
	VolumeType string
}

// InstanceGroup describes either an instance group or an instance fleet.
// For fleets InstanceType and EbsVolumes come from the first instance type specification.
type InstanceGroup struct {
	ID           string
	InstanceType string
	Role         GroupRole
	EbsVolumes   []EbsVolumeSpec
}

type Topology struct {
	Kind   TopologyKind
	Groups []InstanceGroup
}

type Instance struct {
	ID           string
	InstanceType string
	Market       MarketType
	CreationTime *time.Time
	EndTime      *time.Time
	EbsVolumeIDs []string
}

// ClusterCost is the outcome of a single cluster cost computation.
type ClusterCost struct {
	ClusterID        string
	AvailabilityZone string
	Start            *time.Time
	End              *time.Time
	Topology         TopologyKind
	Breakdown        Breakdown
	SkippedInstances int
	ComputedAt       time.Time
}
