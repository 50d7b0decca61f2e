package shared

// Port is a harbour referenced by ERS departure and arrival messages (UN/LOCODE id)
type Port struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Coordinates *Point `json:"coordinates,omitempty"`
}

// DockPoint is a quay or delivery point that belongs to a port
type DockPoint struct {
	PortID      string `json:"port_id"`
	DockPointID int64  `json:"dock_point_id"`
	Name        string `json:"name"`
	Point
}

// PortDirectory is the read-only lookup of ports and dock points shared by all
// workers of one pipeline pass
type PortDirectory struct {
	ports      map[string]Port
	dockPoints map[string][]DockPoint
}

// NewPortDirectory indexes ports and dock points by port id
func NewPortDirectory(ports []Port, dockPoints []DockPoint) *PortDirectory {
	dir := &PortDirectory{
		ports:      make(map[string]Port, len(ports)),
		dockPoints: make(map[string][]DockPoint),
	}
	for _, p := range ports {
		dir.ports[p.ID] = p
	}
	for _, d := range dockPoints {
		dir.dockPoints[d.PortID] = append(dir.dockPoints[d.PortID], d)
	}
	return dir
}

// Targets returns every known coordinate of a port: the port itself and its dock points
func (d *PortDirectory) Targets(portID string) []Point {
	if d == nil || portID == "" {
		return nil
	}
	var targets []Point
	if p, ok := d.ports[portID]; ok && p.Coordinates != nil {
		targets = append(targets, *p.Coordinates)
	}
	for _, dp := range d.dockPoints[portID] {
		targets = append(targets, dp.Point)
	}
	return targets
}

// Len returns the number of known ports
func (d *PortDirectory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.ports)
}

// NearestDistance returns the distance in meters from p to the nearest target.
// ok is false when there are no usable targets.
func NearestDistance(p Point, targets []Point) (distance float64, ok bool) {
	for _, t := range targets {
		d, err := DistanceMeters(p, t)
		if err != nil {
			continue
		}
		if !ok || d < distance {
			distance = d
			ok = true
		}
	}
	return distance, ok
}
