package clock

import "math"

// Action is what a click on the clock's radial menu did or asks for.
type Action int

const (
	ActionNone Action = iota
	ActionMove
	ActionRecord
	ActionChangeSample
	ActionDelete
	ActionVolume
	ActionLength
	ActionSnapping
)

var actionNames = [...]string{"None", "Move", "Record", "ChangeSample", "Delete", "Volume", "Length", "Snapping"}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "Action(?)"
	}
	return actionNames[a]
}

// Menu lists the radial sectors clockwise from the left, as seen on a
// y-down surface.
var Menu = []Action{
	ActionRecord,
	ActionChangeSample,
	ActionDelete,
	ActionVolume,
	ActionLength,
	ActionSnapping,
}

// SectorAt returns the menu action under (x, y) without performing it.
func (c *Clock) SectorAt(x, y float64) Action {
	dx, dy := x-c.x, y-c.y
	if dx*dx+dy*dy <= c.handleRadius*c.handleRadius {
		return ActionMove
	}
	angle := math.Atan2(dy, dx) + math.Pi
	i := int(math.Floor(float64(len(Menu)) * 0.5 * angle / math.Pi))
	if i >= len(Menu) {
		i = len(Menu) - 1
	}
	return Menu[i]
}

// Click handles a press on the clock. Record, ChangeSample and Delete are
// carried out here; Move, Volume, Length and Snapping are returned for the
// front end to drive. Clicks do nothing while recording.
func (c *Clock) Click(x, y float64) Action {
	if c.state != Idle || c.toDelete {
		return ActionNone
	}
	a := c.SectorAt(x, y)
	switch a {
	case ActionRecord:
		c.RecordBeats()
	case ActionChangeSample:
		c.NextSample()
	case ActionDelete:
		c.Delete()
	}
	return a
}
