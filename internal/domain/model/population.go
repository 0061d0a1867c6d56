package model

// ZoneID identifies a traffic analysis zone.
type ZoneID int

// NoZone is the null zone: a trip end that could not be located.
const NoZone ZoneID = 0

// RegionID groups zones for calibration.
type RegionID int

// Household groups persons living in the same dwelling.
type Household struct {
	ID     int
	Zone   ZoneID
	Size   int
	Autos  int
	Income float64 // monthly, currency units
}

// Person is a member of a synthetic household.
type Person struct {
	ID        int
	Household *Household
	Age       int
	Employed  bool
	Student   bool
	License   bool
}

// Trip is a single movement of a person. Mode is written back by the choice stage.
type Trip struct {
	ID          int
	Person      *Person
	Purpose     Purpose
	Origin      ZoneID
	Destination ZoneID
	PeakHour    bool
	Mode        Mode
}

// Located reports whether both trip ends are known.
func (t *Trip) Located() bool {
	return t.Origin != NoZone && t.Destination != NoZone
}

// TripCountResult is the number of trips a person makes for one purpose.
type TripCountResult struct {
	PersonID int
	Purpose  Purpose
	Count    int
}
