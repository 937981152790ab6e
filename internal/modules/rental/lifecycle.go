package rental

import (
	"gearrent/internal/domain"
	"gearrent/internal/events"
)

type Action string

const (
	ActionConfirm Action = "confirm"
	ActionStart   Action = "start"
	ActionReturn  Action = "return"
	ActionCancel  Action = "cancel"
)

type effect struct {
	to        domain.RentalState
	equipment domain.EquipmentStatus // empty leaves the equipment untouched
	eventType string
}

var effects = map[Action]effect{
	ActionConfirm: {to: domain.RentalConfirmed, equipment: domain.EquipmentRented, eventType: events.EventRentalConfirmed},
	ActionStart:   {to: domain.RentalOngoing, eventType: events.EventRentalStarted},
	ActionReturn:  {to: domain.RentalReturned, equipment: domain.EquipmentAvailable, eventType: events.EventRentalReturned},
	ActionCancel:  {to: domain.RentalCancelled, equipment: domain.EquipmentAvailable, eventType: events.EventRentalCancelled},
}

// validNext is consulted only in strict mode.
var validNext = map[domain.RentalState]map[domain.RentalState]bool{
	domain.RentalDraft:     {domain.RentalConfirmed: true, domain.RentalCancelled: true},
	domain.RentalConfirmed: {domain.RentalOngoing: true, domain.RentalReturned: true, domain.RentalCancelled: true},
	domain.RentalOngoing:   {domain.RentalReturned: true, domain.RentalCancelled: true},
	domain.RentalReturned:  {},
	domain.RentalCancelled: {},
}

func CanTransition(from, to domain.RentalState) bool {
	return validNext[from][to]
}
