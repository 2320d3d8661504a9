// Package init triggers VCS provider registration via import side-effects.
//
//	import _ "github.com/crag-dev/crag/internal/vcs/init"
package init

import (
	_ "github.com/crag-dev/crag/internal/vcs/bitbucket"
	_ "github.com/crag-dev/crag/internal/vcs/github"
)
