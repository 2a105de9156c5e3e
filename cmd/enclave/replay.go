// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/enclavenet/enclave/admin"
	"github.com/enclavenet/enclave/builtin/mining"
	"github.com/enclavenet/enclave/builtin/mq"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/genesis"
	"github.com/enclavenet/enclave/kv"
	"github.com/enclavenet/enclave/log"
	"github.com/enclavenet/enclave/metrics"
	"github.com/enclavenet/enclave/runtime"
	"github.com/enclavenet/enclave/state"
	"github.com/enclavenet/enclave/tx"
	"github.com/enclavenet/enclave/xenv"
)

var (
	stateBucket = kv.Bucket("s")
	metaBucket  = kv.Bucket("m")

	bestKey = []byte("best")
)

var (
	metricBestBlock = metrics.LazyLoadGauge("replay_best_block")
	metricOutbound  = metrics.LazyLoadCounterVec("replay_outbound_messages_count", []string{"topic"})
)

// head is the last committed block.
type head struct {
	Number    uint32
	Time      uint64
	StateHash enclave.Bytes32
}

type replayer struct {
	db     kv.Store
	strict bool
	out    io.Writer
	// print receipts of every unit
	receipts bool

	mu     sync.Mutex
	status admin.Status
}

func newReplayer(db kv.Store, strict bool, out io.Writer) *replayer {
	return &replayer{
		db:     db,
		strict: strict,
		out:    out,
		status: admin.Status{Session: uuid.New()},
	}
}

func (r *replayer) stateStore() kv.Store {
	return stateBucket.NewStore(r.db)
}

func (r *replayer) loadHead() (*head, error) {
	data, err := metaBucket.NewGetter(r.db).Get(bestKey)
	if err != nil {
		if r.db.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var h head
	if err := rlp.DecodeBytes(data, &h); err != nil {
		return nil, errors.Wrap(err, "decode head")
	}
	return &h, nil
}

func saveHead(putter kv.Putter, h *head) error {
	data, err := rlp.EncodeToBytes(h)
	if err != nil {
		return err
	}
	return metaBucket.NewPutter(putter).Put(bestKey, data)
}

// init builds the genesis state unless the database already holds a chain.
func (r *replayer) init(cfg *genesis.Config) (*head, error) {
	h, err := r.loadHead()
	if err != nil {
		return nil, err
	}
	if h != nil {
		log.Info("database initialized", "best", h.Number, "state", h.StateHash)
		r.setStatus(h, nil)
		return h, nil
	}

	gen, err := cfg.Builder().Strict(r.strict).Build(r.stateStore())
	if err != nil {
		return nil, errors.Wrap(err, "build genesis")
	}
	h = &head{Time: gen.Timestamp, StateHash: gen.ID}
	if err := saveHead(r.db, h); err != nil {
		return nil, err
	}
	log.Info("genesis built", "id", gen.ID, "calls", len(gen.Receipts))
	r.setStatus(h, gen.Receipts)
	return h, nil
}

// replayBlock executes blk on top of parent and commits it.
func (r *replayer) replayBlock(parent *head, blk *Block) (*head, tx.Receipts, error) {
	elapse := uint64(enclave.SecondsPerBlock)
	if blk.Elapse != nil {
		elapse = *blk.Elapse
	}
	blockCtx := &xenv.BlockContext{
		Number: parent.Number + 1,
		Time:   parent.Time + elapse,
		Seed:   enclave.Blake2b(parent.StateHash[:]),
	}
	rt := runtime.New(state.New(r.stateStore()), blockCtx, runtime.Options{Strict: r.strict})

	var receipts tx.Receipts
	for _, c := range blk.Calls {
		receipt, err := rt.ExecuteCall(c.Origin, c.Call)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "block %d", blockCtx.Number)
		}
		receipts = append(receipts, receipt)
	}

	router := rt.Builtins().Router
	for i := range blk.Updates {
		update := blk.Updates[i]
		if update.BlockNumber == 0 {
			update.BlockNumber = blockCtx.Number
		}
		if update.TimestampMs == 0 {
			update.TimestampMs = blockCtx.Time * 1000
		}
		seq, err := router.IngressSequence(mq.GatekeeperOrigin())
		if err != nil {
			return nil, nil, err
		}
		msg, err := mq.NewMessage(mq.GatekeeperOrigin(), mining.TopicMiningUpdate, &update)
		if err != nil {
			return nil, nil, err
		}
		msg.Sequence = seq
		receipt, err := rt.DeliverMessage(msg)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "block %d", blockCtx.Number)
		}
		receipts = append(receipts, receipt)
	}

	receipt, err := rt.Finalize()
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "block %d", blockCtx.Number)
	}
	receipts = append(receipts, receipt)

	bulk := r.db.Bulk()
	hash, err := rt.Commit(stateBucket.NewPutter(bulk))
	if err != nil {
		return nil, nil, err
	}
	h := &head{Number: blockCtx.Number, Time: blockCtx.Time, StateHash: hash}
	if err := saveHead(bulk, h); err != nil {
		return nil, nil, err
	}
	if err := bulk.Write(); err != nil {
		return nil, nil, errors.Wrap(err, "write block")
	}

	for pair := rt.Outbox().ByTopic().Oldest(); pair != nil; pair = pair.Next() {
		metricOutbound().AddWithLabel(int64(len(pair.Value)), map[string]string{"topic": string(pair.Key)})
	}
	metricBestBlock().Set(int64(h.Number))
	return h, receipts, nil
}

// run replays every block of s on top of parent and returns the new head.
func (r *replayer) run(ctx context.Context, parent *head, s *Scenario, progress bool) (*head, error) {
	var bar *pb.ProgressBar
	if progress {
		bar = pb.New(len(s.Blocks)).SetMaxWidth(90).Start()
		defer func() { bar.NotPrint = true }()
	}

	h := parent
	for i := range s.Blocks {
		select {
		case <-ctx.Done():
			return h, ctx.Err()
		default:
		}

		next, receipts, err := r.replayBlock(h, &s.Blocks[i])
		if err != nil {
			return h, err
		}
		h = next
		r.setStatus(h, receipts)
		if r.receipts {
			r.printReceipts(h, receipts)
		}
		log.Debug("block replayed", "number", h.Number, "time", h.Time, "units", len(receipts), "reverted", receipts.Reverted())
		if bar != nil {
			bar.Increment()
		}
	}
	if bar != nil {
		bar.Finish()
	}
	return h, nil
}

func (r *replayer) setStatus(h *head, receipts tx.Receipts) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Block = h.Number
	r.status.StateHash = h.StateHash.String()
	r.status.Calls += len(receipts)
	r.status.Reverted += receipts.Reverted()
}

// Status implements admin.StatusFunc.
func (r *replayer) Status() admin.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *replayer) printReceipts(h *head, receipts tx.Receipts) {
	fmt.Fprintf(r.out, "block %d @%d\n", h.Number, h.Time)
	for _, receipt := range receipts {
		if receipt.Reverted {
			fmt.Fprintf(r.out, "  %-24s reverted: %s\n", receipt.Name, receipt.Reason)
			continue
		}
		fmt.Fprintf(r.out, "  %-24s ok\n", receipt.Name)
		for _, ev := range receipt.Events {
			fmt.Fprintf(r.out, "    %s %+v\n", ev.EventName(), ev)
		}
		for _, msg := range receipt.Messages {
			fmt.Fprintf(r.out, "    -> %s #%d\n", msg.Destination, msg.Sequence)
		}
	}
}

// summary prints the pools at head h in tokens.
func (r *replayer) summary(h *head) error {
	rt := runtime.New(state.New(r.stateStore()), &xenv.BlockContext{Number: h.Number, Time: h.Time}, runtime.Options{})
	sp := rt.Builtins().StakePool
	count, err := sp.PoolCount()
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.status.Pools = count
	r.mu.Unlock()

	fmt.Fprintf(r.out, "best block %d, time %d, state %v\n", h.Number, h.Time, h.StateHash)
	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PID\tOWNER\tWORKERS\tTOTAL\tFREE\tRELEASING\tSHARES\tOWNER REWARD\tQUEUED")
	for pid := uint64(0); pid < count; pid++ {
		pool, err := sp.Pool(pid)
		if err != nil {
			return err
		}
		if pool == nil {
			continue
		}
		fmt.Fprintf(w, "%d\t%v\t%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
			pool.Pid,
			pool.Owner,
			len(pool.Workers),
			enclave.FormatBalance(pool.TotalStake),
			enclave.FormatBalance(pool.FreeStake),
			enclave.FormatBalance(pool.ReleasingStake),
			enclave.FormatBalance(pool.TotalShares),
			enclave.FormatBalance(pool.OwnerReward),
			len(pool.WithdrawQueue),
		)
	}
	return w.Flush()
}
