package orchestrator

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/JamieWells1/solstice/internal/common"
	"github.com/JamieWells1/solstice/internal/config"
	"github.com/JamieWells1/solstice/internal/engine"
	"github.com/JamieWells1/solstice/internal/instrument"
	"github.com/JamieWells1/solstice/internal/pricing"
)

// equityOptionOrderRatio pairs every option order with this many
// underlying-equity orders during an options run.
const equityOptionOrderRatio = 2

// Broadcaster is the downstream sink for trade and top-of-book
// updates. The orchestrator only ever hands it already-resolved
// values; the wire format and transport are its own business.
type Broadcaster interface {
	BroadcastTrade(transactionID string, symbol string, price float64, qnty int, executed time.Time)
	BroadcastBook(symbol string, bestBid, bestAsk *float64)
}

// Summary is what a completed (or aborted) run reports.
type Summary struct {
	Executed int
	Matched  int
	Took     time.Duration
}

// Orchestrator drives the run: it owns the work queue, worker pool,
// per-symbol mutexes, and wiring between generator, book, matcher and
// pricer.
type Orchestrator struct {
	cfg         config.Config
	registry    *instrument.Registry
	book        *engine.OrderBook
	matcher     *engine.Matcher
	pricer      *pricing.Pricer
	broadcaster Broadcaster

	// Allocated once at pool initialisation and never inserted into
	// afterwards, so references stay stable across workers.
	locks map[instrument.Instrument]*sync.Mutex
	queue *orderQueue

	executed atomic.Int64
	matched  atomic.Int64
}

// New wires an orchestrator. broadcaster may be nil when broadcasting
// is disabled.
func New(cfg config.Config, broadcaster Broadcaster) *Orchestrator {
	book := engine.NewOrderBook()
	store := pricing.NewStore()

	return &Orchestrator{
		cfg:         cfg,
		registry:    instrument.NewRegistry(),
		book:        book,
		matcher:     engine.NewMatcher(book),
		pricer:      pricing.NewPricer(store),
		broadcaster: broadcaster,
		locks:       make(map[instrument.Instrument]*sync.Mutex),
		queue:       newOrderQueue(),
	}
}

func (o *Orchestrator) Config() config.Config { return o.cfg }
func (o *Orchestrator) OrderBook() *engine.OrderBook { return o.book }
func (o *Orchestrator) Pricer() *pricing.Pricer { return o.pricer }

// initUnderlyings activates the pools for the configured asset class.
// Options inherit spot data from their underlying equities, so an
// options run activates the equity pool as well. Runs single-threaded
// before any worker starts.
func (o *Orchestrator) initUnderlyings() {
	classes := []instrument.AssetClass{o.cfg.AssetClass}
	if o.cfg.AssetClass == instrument.Option {
		classes = []instrument.AssetClass{instrument.Equity, instrument.Option}
	}

	for _, class := range classes {
		o.registry.InitPool(class, o.cfg.UnderlyingPoolCount)

		pool := o.registry.Pool(class)
		o.book.InitInstruments(class, pool)
		o.pricer.Store().Init(class, pool)

		for _, sym := range pool {
			o.locks[instrument.Instrument{Class: class, Symbol: sym}] = &sync.Mutex{}
		}
	}

	// Each option's underlying gets a book, price data and a lock even
	// when the sampled equity pool did not draw it.
	if o.cfg.AssetClass == instrument.Option {
		for _, sym := range o.registry.Pool(instrument.Option) {
			underlying, err := instrument.UnderlyingEquity(sym)
			if err != nil {
				continue
			}
			o.book.InitInstruments(instrument.Equity, []instrument.Symbol{underlying})
			o.pricer.Store().Init(instrument.Equity, []instrument.Symbol{underlying})
			if inst := instrument.NewEquity(underlying); o.locks[inst] == nil {
				o.locks[inst] = &sync.Mutex{}
			}
		}
	}
}

// newOrder synthesises an equity or future order, either from the
// pricer or uniformly from the configured bounds.
func (o *Orchestrator) newOrder(uid int, inst instrument.Instrument) (*common.Order, error) {
	if o.cfg.UsePricer {
		data, err := o.pricer.ComputeOrderData(inst)
		if err != nil {
			return nil, err
		}
		return common.New(uid, inst, data.Price, data.Qnty, data.Side)
	}

	price, qnty, side := pricing.RandomOrderValues(o.cfg.MinPrice, o.cfg.MaxPrice, o.cfg.MinQnty, o.cfg.MaxQnty)
	return common.New(uid, inst, price, qnty, side)
}

func (o *Orchestrator) newOptionOrder(uid int, inst instrument.Instrument) (*common.Order, error) {
	if o.cfg.UsePricer {
		data, err := o.pricer.ComputeOptionData(inst)
		if err != nil {
			return nil, err
		}
		return common.NewOption(uid, inst, data.Price, data.Qnty, data.Side, data.Details)
	}

	price, qnty, side := pricing.RandomOrderValues(o.cfg.MinPrice, o.cfg.MaxPrice, o.cfg.MinQnty, o.cfg.MaxQnty)
	details, err := pricing.RandomOptionDetails(inst.Symbol, o.cfg.MinPrice, o.cfg.MaxPrice, o.cfg.MinExpiryDays, o.cfg.MaxExpiryDays)
	if err != nil {
		return nil, err
	}
	return common.NewOption(uid, inst, price, qnty, side, details)
}

// generateOrders produces the next batch for the queue. Option runs
// always emit the underlying-equity order and add the option order at
// the configured cadence.
func (o *Orchestrator) generateOrders(ordersGenerated *int) ([]*common.Order, error) {
	inst, err := o.registry.Random(o.cfg.AssetClass)
	if err != nil {
		return nil, err
	}

	if o.cfg.AssetClass != instrument.Option {
		order, err := o.newOrder(*ordersGenerated, inst)
		if err != nil {
			return nil, err
		}
		*ordersGenerated++
		return []*common.Order{order}, nil
	}

	underlyingSym, err := instrument.UnderlyingEquity(inst.Symbol)
	if err != nil {
		return nil, err
	}

	equityOrder, err := o.newOrder(*ordersGenerated, instrument.NewEquity(underlyingSym))
	if err != nil {
		return nil, err
	}
	*ordersGenerated++

	orders := []*common.Order{equityOrder}

	if *ordersGenerated%(equityOptionOrderRatio+1) == 0 {
		optionOrder, err := o.newOptionOrder(*ordersGenerated, inst)
		if err != nil {
			return nil, err
		}
		*ordersGenerated++
		orders = append(orders, optionOrder)
	}

	return orders, nil
}

// processOrder runs the per-order pipeline under the instrument's
// lock: add to book, match, broadcast, fold statistics. Match failures
// are non-fatal; the order stays resting.
func (o *Orchestrator) processOrder(order *common.Order) bool {
	if mu, ok := o.locks[order.Instrument()]; ok {
		mu.Lock()
		defer mu.Unlock()
	}

	o.book.AddOrder(order)

	fills, matchErr := o.matcher.MatchOrder(order)

	if o.broadcaster != nil {
		bestBid, bestAsk := o.book.BestQuotes(order.Instrument())
		o.broadcaster.BroadcastBook(order.Instrument().String(), bestBid, bestAsk)

		for _, fill := range fills {
			txn := fill.Transaction
			o.broadcaster.BroadcastTrade(txn.UID, txn.Instrument.String(), txn.Price, txn.Qnty, txn.Executed)
		}
	}

	if err := o.pricer.Update(order); err != nil {
		log.Warn().Err(err).Str("ticker", order.Instrument().String()).Msg("statistics update skipped")
	}

	if matchErr != nil {
		log.Debug().
			Str("order", order.String()).
			Str("reason", matchErr.Error()).
			Int("fills", len(fills)).
			Msg("order resting")
		return false
	}

	for _, fill := range fills {
		log.Debug().
			Int("incoming", fill.Incoming.UID()).
			Int("resting", fill.Resting.UID()).
			Str("ticker", order.Instrument().String()).
			Float64("price", fill.Price).
			Int("qnty", fill.Qnty).
			Msg("orders matched")
	}

	return true
}

func (o *Orchestrator) worker() error {
	for {
		order := o.queue.Pop()
		if order == nil {
			return nil
		}

		if o.processOrder(order) {
			o.matched.Add(1)
		}
		o.executed.Add(1)
	}
}

// Run executes the whole simulation: activate pools, start the worker
// pool, drive the generation loop, drain and report. A synthesis error
// is fatal but still drains the workers and reports the partial
// summary.
func (o *Orchestrator) Run() (Summary, error) {
	o.initUnderlyings()

	start := time.Now()

	var t tomb.Tomb
	for i := 0; i < runtime.NumCPU(); i++ {
		t.Go(o.worker)
	}

	infinite := o.cfg.OrdersToGenerate == -1
	ordersGenerated := 0

	var produceErr error
	for i := 0; infinite || i < o.cfg.OrdersToGenerate; i++ {
		orders, err := o.generateOrders(&ordersGenerated)
		if err != nil {
			produceErr = fmt.Errorf("an error occured when trying to create orders: %w", err)
			break
		}

		for _, order := range orders {
			o.queue.Push(order)
		}
	}

	o.queue.Close()
	if err := t.Wait(); err != nil && produceErr == nil {
		produceErr = err
	}

	summary := Summary{
		Executed: int(o.executed.Load()),
		Matched:  int(o.matched.Load()),
		Took:     time.Since(start),
	}

	log.Info().
		Int("executed", summary.Executed).
		Int("matched", summary.Matched).
		Dur("took", summary.Took).
		Msg("run summary")

	return summary, produceErr
}
