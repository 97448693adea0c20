package cli

import (
	"context"
	"fmt"

	"github.com/relaxhq/relaxd/internal"
)

// Represents the 'relaxd version' command.
type VersionCmd struct{}

// Prints the build description.
func (c *VersionCmd) Run(ctx context.Context) error {
	fmt.Printf("%s %s\n", internal.Name, internal.VersionString())
	return nil
}
