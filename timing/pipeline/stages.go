package pipeline

import "github.com/sarchlab/tomasim/insts"

// clusterFor returns the stations and units serving class c.
func (p *Pipeline) clusterFor(c insts.Class) *cluster {
	if c.UsesFPFU() {
		return &p.fpPool
	}
	return &p.intPool
}

// retireFromCDB clears the bus one cycle after its broadcast.
func (p *Pipeline) retireFromCDB() {
	if inst := p.cdb.Retire(p.cycle); inst != nil {
		p.logEvent("cdb retire", "inst", inst.Index)
	}
}

type completion struct {
	cl   *cluster
	unit int
	inst *insts.Instruction
}

// executeToCDB retires finished instructions. Instructions without a
// register result leave immediately, any number per cycle. Of those with a
// result, the oldest gets the bus; the rest wait for a later cycle.
func (p *Pipeline) executeToCDB() error {
	var pending []completion

	for _, cl := range []*cluster{&p.intPool, &p.fpPool} {
		for _, u := range cl.units.Completed(p.cycle) {
			inst := cl.units.Unit(u).Inst

			if !inst.Class.WritesCDB() {
				p.release(cl, u)
				p.stats.SilentRetires++
				p.logEvent("retire", "inst", inst.Index, "class", inst.Class)
				continue
			}

			pending = append(pending, completion{cl: cl, unit: u, inst: inst})
		}
	}

	if len(pending) == 0 {
		return nil
	}

	oldest := pending[0]
	for _, c := range pending[1:] {
		if c.inst.Index < oldest.inst.Index {
			oldest = c
		}
	}

	// The bus is cleared by retireFromCDB at the start of every cycle.
	if !p.cdb.Grant(oldest.inst, p.cycle) {
		return p.violation("bus still holds #%d when granting #%d",
			p.cdb.Occupant().Index, oldest.inst.Index)
	}
	p.stats.CDBConflicts += uint64(len(pending) - 1)

	p.broadcast(oldest.inst)
	p.release(oldest.cl, oldest.unit)

	return nil
}

// broadcast delivers inst's result to every waiting station and clears the
// map table entries that still name inst as producer.
func (p *Pipeline) broadcast(inst *insts.Instruction) {
	inst.SetCDB(p.cycle)
	tag := TagOf(inst)

	woken := p.intPool.stations.Wake(tag, p.cycle) +
		p.fpPool.stations.Wake(tag, p.cycle)

	for _, r := range inst.Destinations() {
		p.mapTable.ClearIf(r, tag)
	}

	p.stats.Broadcasts++
	p.logEvent("broadcast", "inst", inst.Index, "woken", woken)
}

// release frees the unit and the reservation station of a finished
// instruction.
func (p *Pipeline) release(cl *cluster, unit int) {
	station := cl.units.Unit(unit).Station
	cl.units.Release(unit)
	cl.stations.Release(station)
}

// issueToExecute starts ready instructions, oldest first, until each pool
// runs out of ready entries or free units.
func (p *Pipeline) issueToExecute() {
	for _, cl := range []*cluster{&p.intPool, &p.fpPool} {
		ready := cl.stations.Ready(p.cycle)

		for n, slot := range ready {
			inst := cl.stations.Slot(slot).Inst

			unit, ok := cl.units.Acquire(inst, slot, p.cycle)
			if !ok {
				p.stats.IssueStalls += uint64(len(ready) - n)
				break
			}

			cl.stations.StartExecution(slot, unit)
			inst.SetExecute(p.cycle)
			p.logEvent("execute", "inst", inst.Index,
				"pool", cl.units.Name(), "unit", unit)
		}
	}
}

// dispatchToIssue moves the queue head into a reservation station. Only the
// head is considered, so a stalled head blocks everything behind it.
func (p *Pipeline) dispatchToIssue() {
	inst := p.queue.Peek()
	if inst == nil {
		return
	}

	if inst.Class.IsControl() {
		p.queue.Pop()
		p.stats.ControlDiscarded++
		p.logEvent("discard", "inst", inst.Index, "class", inst.Class)
		return
	}

	var waitOn [insts.MaxSrc]Tag
	for i, r := range inst.Src {
		waitOn[i] = p.mapTable.Lookup(r)
	}

	cl := p.clusterFor(inst.Class)
	if _, ok := cl.stations.Allocate(inst, waitOn, p.cycle+1); !ok {
		p.stats.DispatchStalls++
		p.logEvent("dispatch stall", "inst", inst.Index,
			"pool", cl.stations.Name())
		return
	}

	// Sources are read before destinations are renamed so an instruction
	// that reads and writes the same register waits on the previous
	// producer, not on itself.
	if inst.Class.WritesCDB() {
		for _, r := range inst.Destinations() {
			p.mapTable.Rename(r, TagOf(inst))
		}
	}

	p.queue.Pop()
	inst.SetIssue(p.cycle)
	p.logEvent("issue", "inst", inst.Index, "pool", cl.stations.Name(),
		"waitOn", waitOn)
}

// fetch pulls the next trace instruction into the queue. Trap and no-op
// instructions are skipped without taking a slot or a cycle.
func (p *Pipeline) fetch() {
	if p.FetchExhausted() {
		return
	}

	if p.queue.Full() {
		p.stats.QueueFullCycles++
		return
	}

	for !p.FetchExhausted() {
		inst := p.trace.Get(p.fetchIndex)
		p.fetchIndex++

		if inst == nil || inst.Class.IsNop() {
			p.stats.NopsSkipped++
			continue
		}

		inst.SetDispatch(p.cycle)
		p.queue.Push(inst)
		p.stats.Instructions++
		p.logEvent("fetch", "inst", inst.Index, "class", inst.Class)

		return
	}
}
