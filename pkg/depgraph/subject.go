package depgraph

import (
	"fmt"

	"github.com/dd0wney/cluso-depgraph/pkg/validation"
)

// SubjectKey identifies one partitioned DAG run whose dependency graph is
// being watched.
type SubjectKey struct {
	DagID        string `json:"dag_id" yaml:"dag_id"`
	PartitionKey string `json:"partition_key" yaml:"partition_key"`
}

// String returns "<dag>/<partition>"
func (k SubjectKey) String() string {
	return k.DagID + "/" + k.PartitionKey
}

// GraphNodeID returns the node id the dependency graph is requested for
func (k SubjectKey) GraphNodeID() string {
	return DagNodeID(k.DagID)
}

// Validate checks that both parts are usable in an API path
func (k SubjectKey) Validate() error {
	if err := validation.ValidateDagID(k.DagID); err != nil {
		return fmt.Errorf("invalid subject %q: %w", k.String(), err)
	}
	if err := validation.ValidatePartitionKey(k.PartitionKey); err != nil {
		return fmt.Errorf("invalid subject %q: %w", k.String(), err)
	}
	return nil
}
