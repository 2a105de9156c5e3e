// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package mining implements the miner state machine: binding miners to workers, starting and
// stopping mining, the cool down before reclaim, and liveness updates from the gatekeeper.
package mining

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/enclavenet/enclave/builtin/currency"
	"github.com/enclavenet/enclave/builtin/mq"
	"github.com/enclavenet/enclave/builtin/registry"
	"github.com/enclavenet/enclave/builtin/reverts"
	"github.com/enclavenet/enclave/builtin/store"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/fixed"
	"github.com/enclavenet/enclave/log"
	"github.com/enclavenet/enclave/metrics"
	"github.com/enclavenet/enclave/xenv"
)

var logger = log.WithContext("pkg", "mining")

var (
	ErrBadSender           = reverts.New("BadSender")
	ErrBadOrigin           = reverts.New("BadOrigin")
	ErrWorkerNotRegistered = reverts.New("WorkerNotRegistered")
	ErrDuplicateBoundMiner = reverts.New("DuplicateBoundMiner")
	ErrBenchmarkMissing    = reverts.New("BenchmarkMissing")
	ErrMinerNotFound       = reverts.New("MinerNotFound")
	ErrMinerNotBound       = reverts.New("MinerNotBound")
	ErrMinerNotReady       = reverts.New("MinerNotReady")
	ErrMinerNotMining      = reverts.New("MinerNotMining")
	ErrWorkerNotBound      = reverts.New("WorkerNotBound")
	ErrStillInCoolDown     = reverts.New("StillInCoolDown")
	ErrInsufficientStake   = reverts.New("InsufficientStake")
)

var (
	slotMiners         = store.Slot("miners")
	slotMinerBindings  = store.Slot("miner-bindings")
	slotWorkerBindings = store.Slot("worker-bindings")
	slotStakes         = store.Slot("stakes")
	slotWorkerStats    = store.Slot("worker-stats")
	slotNextSessionID  = store.Slot("next-session-id")
	slotOnlineMiners   = store.Slot("online-miners")
)

var (
	CoolDownPeriod         = store.NewConfigVariable("cool-down-period", enclave.DefaultCoolDownPeriod)
	ExpectedHeartbeatCount = store.NewConfigVariable("expected-heartbeat-count", enclave.DefaultExpectedHeartbeatCount)
	MinStaking             = store.NewConfigVariable("min-staking", enclave.DefaultMinStaking)
)

var (
	metricOnlineMiners = metrics.LazyLoadGauge("mining_online_miners")
	metricTransitions  = metrics.LazyLoadCounterVec("mining_transitions_count", []string{"to"})
)

// origin of the messages published by this builtin
var moduleOrigin = mq.ModuleOrigin("mining")

// ve = 1.5 * (stake + 0.3 * score), stake in tokens
var (
	veScale      = fixed.Ratio(3, 2)
	veScoreRatio = fixed.Ratio(3, 10)
)

// Mining is the miner state machine builtin.
type Mining struct {
	addr      enclave.Address
	env       *xenv.Environment
	ctx       *store.Context
	registry  *registry.Registry
	currency  *currency.Currency
	queue     *mq.Queue
	callbacks Callbacks

	miners         *store.Mapping[enclave.Address, *MinerInfo]
	minerBindings  *store.Mapping[enclave.Address, *enclave.WorkerPubkey]
	workerBindings *store.Mapping[enclave.WorkerPubkey, *enclave.Address]
	stakes         *store.Mapping[enclave.Address, *big.Int]
	workerStats    *store.Mapping[enclave.WorkerPubkey, *WorkerStat]
	nextSessionID  *store.Counter
	onlineMiners   *store.Counter
}

func New(addr enclave.Address, env *xenv.Environment, reg *registry.Registry, cur *currency.Currency) *Mining {
	ctx := store.NewContext(addr, env.State())
	return &Mining{
		addr:      addr,
		env:       env,
		ctx:       ctx,
		registry:  reg,
		currency:  cur,
		queue:     mq.NewQueue(ctx, env.Outbox()),
		callbacks: NoopCallbacks{},

		miners:         store.NewMapping[enclave.Address, *MinerInfo](ctx, slotMiners),
		minerBindings:  store.NewMapping[enclave.Address, *enclave.WorkerPubkey](ctx, slotMinerBindings),
		workerBindings: store.NewMapping[enclave.WorkerPubkey, *enclave.Address](ctx, slotWorkerBindings),
		stakes:         store.NewMapping[enclave.Address, *big.Int](ctx, slotStakes),
		workerStats:    store.NewMapping[enclave.WorkerPubkey, *WorkerStat](ctx, slotWorkerStats),
		nextSessionID:  store.NewCounter(ctx, slotNextSessionID),
		onlineMiners:   store.NewCounter(ctx, slotOnlineMiners),
	}
}

// Subscribe sets the receiver of lifecycle callbacks. Nil restores NoopCallbacks.
func (m *Mining) Subscribe(cb Callbacks) {
	if cb == nil {
		cb = NoopCallbacks{}
	}
	m.callbacks = cb
}

// Address returns the account of the builtin. It funds the rewards paid out to stakers.
func (m *Mining) Address() enclave.Address {
	return m.addr
}

// Context returns the storage context of the builtin.
func (m *Mining) Context() *store.Context {
	return m.ctx
}

func (m *Mining) Miner(miner enclave.Address) (*MinerInfo, error) {
	return m.miners.Get(miner)
}

// MinerBinding returns the worker bound to miner.
func (m *Mining) MinerBinding(miner enclave.Address) (enclave.WorkerPubkey, bool, error) {
	w, err := m.minerBindings.Get(miner)
	if err != nil || w == nil {
		return enclave.WorkerPubkey{}, false, err
	}
	return *w, true, nil
}

// WorkerBinding returns the miner bound to worker.
func (m *Mining) WorkerBinding(worker enclave.WorkerPubkey) (enclave.Address, bool, error) {
	a, err := m.workerBindings.Get(worker)
	if err != nil || a == nil {
		return enclave.Address{}, false, err
	}
	return *a, true, nil
}

// Stake returns the stake of a mining miner, zero otherwise.
func (m *Mining) Stake(miner enclave.Address) (*big.Int, error) {
	s, err := m.stakes.Get(miner)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return new(big.Int), nil
	}
	return s, nil
}

func (m *Mining) WorkerStat(worker enclave.WorkerPubkey) (*WorkerStat, error) {
	st, err := m.workerStats.Get(worker)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &WorkerStat{}
	}
	if st.TotalReward == nil {
		st.TotalReward = new(big.Int)
	}
	return st, nil
}

func (m *Mining) OnlineMiners() (uint64, error) {
	return m.onlineMiners.Get()
}

func (m *Mining) CoolDownPeriod() (uint64, error) {
	return CoolDownPeriod.Get(m.ctx)
}

func (m *Mining) ensureMinerBound(miner enclave.Address) (enclave.WorkerPubkey, error) {
	w, ok, err := m.MinerBinding(miner)
	if err != nil {
		return w, err
	}
	if !ok {
		return w, ErrMinerNotBound
	}
	return w, nil
}

func (m *Mining) ensureWorkerBound(worker enclave.WorkerPubkey) (enclave.Address, error) {
	a, ok, err := m.WorkerBinding(worker)
	if err != nil {
		return a, err
	}
	if !ok {
		return a, ErrWorkerNotBound
	}
	return a, nil
}

func (m *Mining) setState(miner enclave.Address, info *MinerInfo, to MinerState) error {
	info.State = to
	if err := m.miners.Set(miner, info); err != nil {
		return err
	}
	metricTransitions().AddWithLabel(1, map[string]string{"to": to.String()})
	return nil
}

// Bind binds miner to a registered worker. Both must be unbound.
func (m *Mining) Bind(miner enclave.Address, worker enclave.WorkerPubkey) error {
	now := m.env.Now()

	exists, err := m.registry.WorkerExists(worker)
	if err != nil {
		return err
	}
	if !exists {
		return ErrWorkerNotRegistered
	}
	if _, ok, err := m.MinerBinding(miner); err != nil {
		return err
	} else if ok {
		return ErrDuplicateBoundMiner
	}
	if _, ok, err := m.WorkerBinding(worker); err != nil {
		return err
	} else if ok {
		return ErrDuplicateBoundMiner
	}
	// an unbound miner keeps its record until reclaimed
	prev, err := m.miners.Get(miner)
	if err != nil {
		return err
	}
	if prev != nil && prev.State != Ready {
		if prev.State == MiningCoolingDown {
			return ErrStillInCoolDown
		}
		err := errors.Errorf("unbound miner %v is in state %v", miner, prev.State)
		logger.Error("inconsistent miner state", "err", err)
		return err
	}

	if err := m.minerBindings.Set(miner, &worker); err != nil {
		return err
	}
	if err := m.workerBindings.Set(worker, &miner); err != nil {
		return err
	}
	info := &MinerInfo{
		State:      Ready,
		VUpdatedAt: now,
		Benchmark:  Benchmark{MiningStartTime: now},
	}
	if err := m.miners.Set(miner, info); err != nil {
		return err
	}
	m.env.Log(&MinerBound{Miner: miner, Worker: worker})
	logger.Debug("miner bound", "miner", miner, "worker", worker)
	return nil
}

// UnbindMiner removes the binding of miner. A miner that cannot be unbound gracefully is
// stopped first. OnUnbound is called when notify is set.
func (m *Mining) UnbindMiner(miner enclave.Address, notify bool) error {
	worker, err := m.ensureMinerBound(miner)
	if err != nil {
		return err
	}
	info, err := m.miners.Get(miner)
	if err != nil {
		return err
	}
	if info == nil {
		err := errors.Errorf("bound miner %v has no miner info", miner)
		logger.Error("inconsistent miner state", "err", err)
		return err
	}

	forced := !info.State.CanUnbind()
	if forced {
		if err := m.StopMining(miner); err != nil {
			return err
		}
	}
	m.minerBindings.Delete(miner)
	m.workerBindings.Delete(worker)
	m.env.Log(&MinerUnbound{Miner: miner, Worker: worker})
	logger.Debug("miner unbound", "miner", miner, "worker", worker, "forced", forced)

	if notify {
		if err := m.callbacks.OnUnbound(worker, forced); err != nil {
			return errors.WithMessage(err, "on unbound")
		}
	}
	return nil
}

// Unbind lets the operator of the bound worker unbind miner. The subscriber is always notified.
func (m *Mining) Unbind(origin enclave.Address, miner enclave.Address) error {
	worker, err := m.ensureMinerBound(miner)
	if err != nil {
		return err
	}
	winfo, err := m.registry.Get(worker)
	if err != nil {
		return err
	}
	if winfo == nil {
		return ErrWorkerNotRegistered
	}
	if !winfo.HasOperator || winfo.Operator != origin {
		return ErrBadSender
	}
	return m.UnbindMiner(miner, true)
}

// computeVe returns 1.5 * (stake/Dollars + 0.3 * score).
func computeVe(stake *big.Int, score uint32) fixed.Point {
	tokens, _ := fixed.FromBalance(stake).Div(fixed.FromBalance(enclave.Dollars))
	conf := veScoreRatio.MulInt(uint64(score))
	return tokens.Add(conf).Mul(veScale)
}

// StartMining starts a bound miner in Ready state with stake locked externally.
func (m *Mining) StartMining(miner enclave.Address, stake *big.Int) error {
	worker, ok, err := m.MinerBinding(miner)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMinerNotFound
	}
	info, err := m.miners.Get(miner)
	if err != nil {
		return err
	}
	if info == nil {
		return errors.Errorf("bound miner %v has no miner info", miner)
	}
	if info.State != Ready {
		return ErrMinerNotReady
	}
	winfo, err := m.registry.Get(worker)
	if err != nil {
		return err
	}
	if winfo == nil {
		return errors.Errorf("bound worker %v is not registered", worker)
	}
	if !winfo.HasScore {
		return ErrBenchmarkMissing
	}
	minStaking, err := MinStaking.Get(m.ctx)
	if err != nil {
		return err
	}
	if stake.Cmp(minStaking) < 0 {
		return ErrInsufficientStake
	}

	if err := m.stakes.Set(miner, new(big.Int).Set(stake)); err != nil {
		return err
	}
	ve := computeVe(stake, winfo.InitialScore)
	info.Ve = ve
	info.V = ve
	info.VUpdatedAt = m.env.Now()
	if err := m.setState(miner, info, MiningIdle); err != nil {
		return err
	}

	sessionID, err := m.nextSessionID.Next()
	if err != nil {
		return err
	}
	online, err := m.onlineMiners.Add(1)
	if err != nil {
		return err
	}
	metricOnlineMiners().Set(int64(online))

	if err := m.queue.Push(moduleOrigin, TopicWorkerEvent, &WorkerEvent{
		Pubkey:    worker,
		Kind:      EventMiningStart,
		SessionID: uint32(sessionID),
		InitV:     ve,
	}); err != nil {
		return err
	}
	m.env.Log(&MinerStarted{Miner: miner})
	logger.Info("miner started", "miner", miner, "worker", worker, "stake", stake, "ve", ve)
	return nil
}

// settlement returns the stake of miner and the part of it lost to the value decay, both
// computed from the frozen value of a stopped miner.
func (m *Mining) settlement(miner enclave.Address, info *MinerInfo) (orig, slashed *big.Int, err error) {
	orig, err = m.Stake(miner)
	if err != nil {
		return nil, nil, err
	}
	ratio := fixed.FromInt(1)
	if !info.Ve.IsZero() {
		r, _ := info.V.Div(info.Ve)
		ratio = fixed.Min(r, ratio)
	}
	returned := fixed.MulBalance(orig, ratio)
	return orig, new(big.Int).Sub(orig, returned), nil
}

// StopMining moves a mining miner into cool down.
func (m *Mining) StopMining(miner enclave.Address) error {
	worker, err := m.ensureMinerBound(miner)
	if err != nil {
		return err
	}
	info, err := m.miners.Get(miner)
	if err != nil {
		return err
	}
	if info == nil {
		return ErrMinerNotFound
	}
	if !info.State.IsMining() {
		return ErrMinerNotMining
	}

	info.CoolDownStart = m.env.Now()
	if err := m.setState(miner, info, MiningCoolingDown); err != nil {
		return err
	}
	online, err := m.onlineMiners.Add(-1)
	if err != nil {
		return err
	}
	metricOnlineMiners().Set(int64(online))

	orig, slashed, err := m.settlement(miner, info)
	if err != nil {
		return err
	}
	if err := m.queue.Push(moduleOrigin, TopicWorkerEvent, &WorkerEvent{
		Pubkey: worker,
		Kind:   EventMiningStop,
	}); err != nil {
		return err
	}
	m.env.Log(&MinerStopped{Miner: miner})
	logger.Info("miner stopped", "miner", miner, "worker", worker, "stake", orig, "slashed", slashed)

	if err := m.callbacks.OnStopped(worker, orig, slashed); err != nil {
		return errors.WithMessage(err, "on stopped")
	}
	return nil
}

// Reclaim returns a miner whose cool down has elapsed to Ready and releases its stake.
func (m *Mining) Reclaim(miner enclave.Address) error {
	info, err := m.miners.Get(miner)
	if err != nil {
		return err
	}
	if info == nil {
		return ErrMinerNotFound
	}
	ok, err := m.canReclaim(info)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStillInCoolDown
	}

	orig, slashed, err := m.settlement(miner, info)
	if err != nil {
		return err
	}
	info.CoolDownStart = 0
	if err := m.setState(miner, info, Ready); err != nil {
		return err
	}
	m.stakes.Delete(miner)
	m.env.Log(&MinerReclaimed{Miner: miner, Orig: orig, Slashed: slashed})
	logger.Info("miner reclaimed", "miner", miner, "stake", orig, "slashed", slashed)

	if err := m.callbacks.OnReclaim(miner, orig, slashed); err != nil {
		return errors.WithMessage(err, "on reclaim")
	}
	return nil
}

func (m *Mining) canReclaim(info *MinerInfo) (bool, error) {
	if info.State != MiningCoolingDown {
		return false, nil
	}
	period, err := CoolDownPeriod.Get(m.ctx)
	if err != nil {
		return false, err
	}
	now := m.env.Now()
	return now > info.CoolDownStart && now-info.CoolDownStart > period, nil
}

// WithdrawSubsidyPool pays amount from the reward account of the builtin to target.
func (m *Mining) WithdrawSubsidyPool(target enclave.Address, amount *big.Int) error {
	return m.currency.Transfer(m.addr, target, amount)
}

// HandleMessage is the router handler of mining updates.
func (m *Mining) HandleMessage(msg mq.Message) error {
	if !msg.Sender.IsGatekeeper() {
		return ErrBadSender
	}
	var update MiningInfoUpdate
	if err := mq.Decode(msg, &update); err != nil {
		return err
	}
	return m.OnGatekeeperMessage(msg.Sender, &update)
}

// OnGatekeeperMessage applies a liveness and settlement batch. Liveness only touches miners in a
// mining state. A bound miner cooling down still has its payout forwarded, with V left frozen at
// the value used for its slash. Settlements of other workers are dropped.
func (m *Mining) OnGatekeeperMessage(sender mq.Origin, update *MiningInfoUpdate) error {
	if !sender.IsGatekeeper() {
		return ErrBadSender
	}
	if update.IsEmpty() {
		return nil
	}

	for _, worker := range update.Offline {
		miner, info, err := m.miningMiner(worker)
		if err != nil {
			return err
		}
		if info == nil {
			continue
		}
		if err := m.setState(miner, info, MiningUnresponsive); err != nil {
			return err
		}
		m.env.Log(&MinerEnterUnresponsive{Miner: miner})
	}

	for _, worker := range update.Recovered {
		miner, info, err := m.miningMiner(worker)
		if err != nil {
			return err
		}
		if info == nil {
			continue
		}
		if err := m.setState(miner, info, MiningIdle); err != nil {
			return err
		}
		m.env.Log(&MinerExitUnresponsive{Miner: miner})
	}

	now := m.env.Now()
	settled := make([]SettleInfo, 0, len(update.Settle))
	for _, s := range update.Settle {
		miner, info, err := m.boundMiner(s.Pubkey)
		if err != nil {
			return err
		}
		v := s.V
		switch {
		case info != nil && info.State.IsMining():
			info.V = s.V
			info.VUpdatedAt = now
			to := info.State
			if to == MiningIdle {
				to = MiningActive
			}
			if err := m.setState(miner, info, to); err != nil {
				return err
			}
		case info != nil && info.State == MiningCoolingDown:
			v = info.V
		default:
			logger.Warn("settlement for a worker not mining, dropped", "worker", s.Pubkey)
			continue
		}

		stat, err := m.WorkerStat(s.Pubkey)
		if err != nil {
			return err
		}
		stat.TotalReward = new(big.Int).Add(stat.TotalReward, fixed.MulBalance(enclave.Dollars, s.Payout))
		if err := m.workerStats.Set(s.Pubkey, stat); err != nil {
			return err
		}
		m.env.Log(&MinerSettled{Miner: miner, V: v, Payout: s.Payout})
		settled = append(settled, s)
	}

	if len(settled) > 0 {
		if err := m.callbacks.OnReward(settled); err != nil {
			return errors.WithMessage(err, "on reward")
		}
	}
	return nil
}

// miningMiner returns the miner bound to worker if it is in a mining state, nil info otherwise.
func (m *Mining) miningMiner(worker enclave.WorkerPubkey) (enclave.Address, *MinerInfo, error) {
	miner, info, err := m.boundMiner(worker)
	if err != nil || info == nil {
		return miner, nil, err
	}
	if !info.State.IsMining() {
		return miner, nil, nil
	}
	return miner, info, nil
}

// boundMiner returns the miner bound to worker in any state, nil info if the worker is unbound.
func (m *Mining) boundMiner(worker enclave.WorkerPubkey) (enclave.Address, *MinerInfo, error) {
	miner, ok, err := m.WorkerBinding(worker)
	if err != nil || !ok {
		return miner, nil, err
	}
	info, err := m.miners.Get(miner)
	if err != nil {
		return miner, nil, err
	}
	if info == nil {
		err := errors.Errorf("bound miner %v has no miner info", miner)
		logger.Error("inconsistent miner state", "err", err)
		return miner, nil, err
	}
	return miner, info, nil
}

// HeartbeatChallenge publishes the per-block heartbeat challenge.
func (m *Mining) HeartbeatChallenge() error {
	online, err := m.onlineMiners.Get()
	if err != nil {
		return err
	}
	numTx, err := ExpectedHeartbeatCount.Get(m.ctx)
	if err != nil {
		return err
	}
	target := PowTarget(uint32(numTx), uint32(online), enclave.SecondsPerBlock)
	seed := new(big.Int).SetBytes(m.env.BlockContext().Seed.Bytes())
	return m.queue.Push(moduleOrigin, TopicHeartbeatChallenge, &HeartbeatChallenge{
		Seed:         seed,
		OnlineTarget: target.ToBig(),
	})
}

// OnFinalize runs at the end of every block.
func (m *Mining) OnFinalize() error {
	return m.HeartbeatChallenge()
}

func ensureRoot(origin enclave.Address) error {
	if origin != enclave.RootAccount {
		return ErrBadOrigin
	}
	return nil
}

// SetCoolDownPeriod changes the cool down period. Root only.
func (m *Mining) SetCoolDownPeriod(origin enclave.Address, period uint64) error {
	if err := ensureRoot(origin); err != nil {
		return err
	}
	if err := CoolDownPeriod.Set(m.ctx, period); err != nil {
		return err
	}
	m.env.Log(&CoolDownExpirationChanged{Period: period})
	return nil
}

// SetExpectedHeartbeatCount changes the heartbeats expected per block. Root only.
func (m *Mining) SetExpectedHeartbeatCount(origin enclave.Address, n uint64) error {
	if err := ensureRoot(origin); err != nil {
		return err
	}
	return ExpectedHeartbeatCount.Set(m.ctx, n)
}

// ForceHeartbeat asks every worker for a heartbeat by publishing the MAX target. Root only.
func (m *Mining) ForceHeartbeat(origin enclave.Address) error {
	if err := ensureRoot(origin); err != nil {
		return err
	}
	return m.queue.Push(moduleOrigin, TopicHeartbeatChallenge, &HeartbeatChallenge{
		Seed:         new(big.Int),
		OnlineTarget: maxTarget.ToBig(),
	})
}
