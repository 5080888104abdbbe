package pipeline

import (
	"fmt"

	"github.com/sarchlab/tomasim/insts"
)

// verify checks the machine state at the end of a cycle.
func (p *Pipeline) verify() error {
	if p.queue.Len() > p.queue.Capacity() {
		return p.violation("queue holds %d of %d", p.queue.Len(), p.queue.Capacity())
	}

	for _, cl := range []*cluster{&p.intPool, &p.fpPool} {
		if err := p.verifyCluster(cl); err != nil {
			return err
		}
	}

	if inst := p.cdb.Occupant(); inst != nil && inst.Timing.CDBCycle != p.cycle {
		return p.violation("bus holds #%d broadcast at cycle %d",
			inst.Index, inst.Timing.CDBCycle)
	}

	return nil
}

func (p *Pipeline) verifyCluster(cl *cluster) error {
	stations, units := cl.stations, cl.units

	occupied := 0
	for i := 0; i < stations.Capacity(); i++ {
		s := stations.Slot(i)
		if s.State == StationFree {
			continue
		}
		occupied++

		if err := p.verifyTiming(s.Inst); err != nil {
			return err
		}

		if s.State == StationExecuting {
			u := units.Unit(s.Unit)
			if !u.Busy || u.Inst != s.Inst || u.Station != i {
				return p.violation("%s station %d and unit %d disagree",
					stations.Name(), i, s.Unit)
			}
		}
	}

	if occupied != stations.Occupied() || occupied > stations.Capacity() {
		return p.violation("%s stations: %d occupied, counted %d, capacity %d",
			stations.Name(), occupied, stations.Occupied(), stations.Capacity())
	}

	busy := 0
	for i := 0; i < units.Capacity(); i++ {
		if units.Unit(i).Busy {
			busy++
		}
	}

	if busy != units.Busy() || busy > units.Capacity() {
		return p.violation("%s units: %d busy, counted %d, capacity %d",
			units.Name(), busy, units.Busy(), units.Capacity())
	}

	return nil
}

func (p *Pipeline) verifyTiming(inst *insts.Instruction) error {
	t := inst.Timing
	stamps := []uint64{t.DispatchCycle, t.IssueCycle, t.ExecuteCycle, t.CDBCycle}

	var last uint64
	for _, s := range stamps {
		if s == 0 {
			break
		}
		if s < last || s > p.cycle {
			return p.violation("#%d has timing %+v", inst.Index, t)
		}
		last = s
	}

	return nil
}

func (p *Pipeline) violation(format string, args ...any) error {
	return fmt.Errorf("%w at cycle %d: %s",
		ErrInvariant, p.cycle, fmt.Sprintf(format, args...))
}
