// Package network assembles the two-tier topology: the outer scheduler with
// its splitter and stations, and every inner tier nested below an outer
// station, plus the traffic sources feeding them.
package network

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pon-dba/pon-dba-sim/sim"
	"github.com/pon-dba/pon-dba-sim/sim/dba"
	"github.com/pon-dba/pon-dba-sim/sim/stats"
	"github.com/pon-dba/pon-dba-sim/sim/trace"
	"github.com/pon-dba/pon-dba-sim/sim/workload"
)

// Domain is one scheduler with its splitter and stations.
type Domain struct {
	Tier      dba.Tier
	Scheduler *dba.GrantScheduler
	Relay     *dba.ContentionRelay
	Stations  []*dba.StationTransmitter
	// Host is the outer station an inner domain hangs off; -1 for the outer domain.
	Host int
}

// Network is a fully wired simulation, ready to run once.
type Network struct {
	Config     Config
	Sim        *sim.Simulator
	Outer      *Domain
	Inner      []*Domain
	Terminal   *dba.Terminal
	Forwarders []*dba.Forwarder
	Sources    []*workload.Source
	Stats      *stats.Collector
	Trace      *trace.SimulationTrace
}

// Build validates cfg and wires every component. collector may be nil.
func Build(cfg Config, collector *stats.Collector) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	n := &Network{
		Config: cfg,
		Sim:    sim.NewSimulator(sim.SecondsToTicks(cfg.HorizonSeconds)),
		Stats:  collector,
	}
	if trace.TraceLevel(cfg.Trace.Level) == trace.TraceLevelDecisions {
		n.Trace = trace.NewSimulationTrace(trace.TraceConfig{
			Level:      trace.TraceLevelDecisions,
			MaxCycles:  cfg.Trace.MaxCycles,
			MaxRecords: cfg.Trace.MaxRecords,
		})
	}

	n.Terminal = dba.NewTerminal(cfg.Outer.Name, collector)
	outer, err := n.buildDomain(cfg.Outer, dba.OuterTier, n.Terminal, -1)
	if err != nil {
		return nil, err
	}
	n.Outer = outer

	for i, in := range cfg.Inner {
		fw := &dba.Forwarder{
			Tier:   in.Name,
			Domain: i,
			Host:   outer.Stations[in.Host],
			Stats:  collector,
		}
		d, err := n.buildDomain(in.TierConfig, dba.InnerTier, fw, in.Host)
		if err != nil {
			return nil, err
		}
		n.Forwarders = append(n.Forwarders, fw)
		n.Inner = append(n.Inner, d)
	}

	if err := n.attachSources(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Network) buildDomain(tc TierConfig, kind dba.TierKind, sink dba.FrameSink, host int) (*Domain, error) {
	tier := n.Config.tier(tc, kind)
	policy, err := dba.NewGrantPolicy(tc.Policy)
	if err != nil {
		return nil, fmt.Errorf("tier %s: %w", tc.Name, err)
	}
	d := &Domain{
		Tier: tier,
		Scheduler: dba.NewGrantScheduler(tier, policy, dba.SchedulerOptions{
			Sink:  sink,
			Stats: n.Stats,
			Trace: n.Trace,
		}),
		Relay: dba.NewContentionRelay(tc.Name + "/splitter"),
		Host:  host,
	}

	feeder := n.Config.propagation(tc.FeederKm)
	d.Scheduler.Attach(dba.NewLink(tc.Name+"/feeder-down", tier.LinkRate, feeder, d.Relay.SchedulerPort()))
	upFeeder := dba.NewLink(tc.Name+"/feeder-up", tier.LinkRate, feeder, d.Scheduler)

	drops := make([]*dba.Link, tier.Subordinates)
	for i := range drops {
		st := dba.NewStationTransmitter(tier, dba.SubordinateID(i), dba.StationOptions{Stats: n.Stats, Trace: n.Trace})
		delay := n.Config.propagation(tc.dropKm(i))
		drops[i] = dba.NewLink(fmt.Sprintf("%s/drop%d-down", tc.Name, i), tier.LinkRate, delay, st)
		st.Attach(dba.NewLink(fmt.Sprintf("%s/drop%d-up", tc.Name, i), tier.LinkRate, delay, d.Relay.StationPort()))
		d.Stations = append(d.Stations, st)
	}
	d.Relay.Connect(upFeeder, drops)

	logrus.Debugf("built %s tier %s: %d stations at %g b/s, max grant %g bytes",
		kind, tc.Name, tier.Subordinates, tier.LinkRate, tier.MaxGrant())
	return d, nil
}

func (n *Network) attachSources() error {
	streams := sim.NewRandomStreams(sim.NewSimulationKey(n.Config.Seed))
	ids := &dba.FrameIDs{}
	attach := func(tc TierConfig, d *Domain) error {
		for _, spec := range tc.Sources {
			for _, id := range spec.StationIDs(tc.Subordinates) {
				name := fmt.Sprintf("%s/%d/%s", tc.Name, id, spec.Name)
				src, err := workload.NewSource(name, spec, d.Stations[id], streams.Stream(sim.SourceStream(tc.Name, id, spec.Name)), ids)
				if err != nil {
					return err
				}
				n.Sources = append(n.Sources, src)
			}
		}
		return nil
	}
	if err := attach(n.Config.Outer, n.Outer); err != nil {
		return err
	}
	for i, in := range n.Config.Inner {
		if err := attach(in.TierConfig, n.Inner[i]); err != nil {
			return err
		}
	}
	logrus.Debugf("seeded %d source streams from key %d", len(streams.Names()), streams.Key())
	return nil
}

// Domains returns the outer domain followed by every inner domain.
func (n *Network) Domains() []*Domain {
	return append([]*Domain{n.Outer}, n.Inner...)
}

// Run starts ranging in every domain and every source, runs to the horizon
// and summarizes the outcome.
func (n *Network) Run() *Result {
	for _, d := range n.Domains() {
		d.Scheduler.Start(n.Sim)
	}
	for _, src := range n.Sources {
		src.Start(n.Sim)
	}
	logrus.Infof("running %d domains with %d sources for %g s", len(n.Domains()), len(n.Sources), n.Config.HorizonSeconds)
	n.Sim.Run()

	res := n.summarize()
	for _, name := range res.Stall.Unranged {
		logrus.Warnf("scheduler %s never completed ranging; its cycle never started", name)
	}
	for name, missed := range res.Stall.MissedGrantMaps {
		logrus.Warnf("%s: %d header slots without a grant map", name, missed)
	}
	return res
}
