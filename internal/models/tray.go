package models

// TrayState is the dice tray as the page shows it.
type TrayState struct {
	Quantity int         `json:"quantity"`
	Sides    int         `json:"sides"`
	Mode     Mode        `json:"mode"`
	Last     RollRequest `json:"last"`
	Output   string      `json:"output"`
}

func NewTrayState() TrayState {
	return TrayState{
		Quantity: DefaultQuantity,
		Sides:    DefaultSides,
		Mode:     ModeNormal,
		Last:     RollRequest{Quantity: DefaultQuantity, Sides: DefaultSides, Mode: ModeNormal},
	}
}

// ModeVisible reports whether the adv/dis toggle is reachable.
func (t TrayState) ModeVisible() bool {
	return ModeApplies(t.Quantity, t.Sides)
}

// Request is the roll the tray would make right now.
func (t TrayState) Request() RollRequest {
	return RollRequest{Quantity: t.Quantity, Sides: t.Sides, Mode: t.Mode}.Normalize()
}

type TrayUpdateRequest struct {
	Quantity *string `json:"quantity"`
	Sides    *string `json:"sides"`
}
