package replication

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// ReplIDLength is the length of a generated replication id
const ReplIDLength = 40

const replIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Role is the replication role of a process
type Role int

const (
	// RoleMaster accepts writes and owns a replication id
	RoleMaster Role = iota
	// RoleReplica follows a master
	RoleReplica
)

// String returns the role as reported by INFO replication
func (r Role) String() string {
	switch r {
	case RoleMaster:
		return "master"
	case RoleReplica:
		return "slave"
	default:
		return "unknown"
	}
}

// Config is the replication configuration of a process. It is fixed at
// startup and never changes afterwards.
type Config struct {
	Role Role

	// ReplID and ReplOffset are set for a master only
	ReplID     string
	ReplOffset int64

	// MasterAddr is the host:port of the master for a replica
	MasterAddr string
}

// NewMasterConfig returns a master configuration with a freshly generated
// replication id and offset 0
func NewMasterConfig() (*Config, error) {
	id, err := GenerateReplID()
	if err != nil {
		return nil, err
	}
	return &Config{
		Role:   RoleMaster,
		ReplID: id,
	}, nil
}

// NewReplicaConfig returns a replica configuration following masterAddr
func NewReplicaConfig(masterAddr string) *Config {
	return &Config{
		Role:       RoleReplica,
		MasterAddr: masterAddr,
	}
}

// IsMaster reports whether the process runs as a master
func (c *Config) IsMaster() bool {
	return c.Role == RoleMaster
}

// GenerateReplID returns a random 40 character alphanumeric string
func GenerateReplID() (string, error) {
	max := big.NewInt(int64(len(replIDAlphabet)))
	buf := make([]byte, ReplIDLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate replication id: %w", err)
		}
		buf[i] = replIDAlphabet[n.Int64()]
	}
	return string(buf), nil
}
