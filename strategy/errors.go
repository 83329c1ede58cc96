package strategy

import "github.com/arloliu/kcoop/types"

// ErrNoMembers indicates that no members were provided for assignment.
var ErrNoMembers = types.ErrNoMembers
