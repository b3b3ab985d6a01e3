package backtest

import (
	"log"
	"strings"

	"CryptoBacktest/internal/models"
	"CryptoBacktest/internal/services/indicators"
)

const (
	sideLong  = models.PositionSideLong
	sideShort = models.PositionSideShort
)

type position struct {
	id         int
	side       string
	entryPrice float64
	entryTime  int64
	entryIndex int
	coinSize   float64
	usdtSize   float64
	orderType  string
}

type pendingOrder struct {
	side      string
	orderType OrderType
	price     float64
	createdAt int
}

type stats struct {
	totalFees   float64
	winTrades   int
	loseTrades  int
	longTrades  int
	shortTrades int
	maxProfit   float64
	maxLoss     float64
	sumProfit   float64
	sumLoss     float64
	sumDuration int
	maxDuration int
}

// Simulator owns the state of one run. It is not safe for concurrent use;
// run several simulators instead.
type Simulator struct {
	settings    Settings
	candles     []models.Candle
	fee         float64
	maxPosition float64

	// State tracking
	balance     float64
	equity      float64
	peak        float64
	maxDrawdown float64
	positions   []*position
	pending     []pendingOrder

	// Results collection
	trades      []Trade
	equityCurve []EquityPoint
	stats       stats
}

func NewSimulator(candles []models.Candle, settings Settings) *Simulator {
	settings = settings.WithDefaults()
	return &Simulator{
		settings:    settings,
		candles:     candles,
		fee:         settings.FeeRate(),
		maxPosition: settings.EffectiveMaxPosition(),
		balance:     settings.InitialBalance,
		equity:      settings.InitialBalance,
		peak:        settings.InitialBalance,
		trades:      make([]Trade, 0),
		equityCurve: make([]EquityPoint, 0),
	}
}

// Run walks every bar from the warm-up offset and returns the report. A
// simulator runs once.
func (s *Simulator) Run(decide DecisionFunc, ind *indicators.Set) *Report {
	for i := WarmupBars; i < len(s.candles); i++ {
		candle := s.candles[i]

		if s.settings.VolumeFilter > 0 && candle.Volume < s.settings.VolumeFilter {
			s.checkPendingOrders(candle, i)
			continue
		}

		s.checkPendingOrders(candle, i)

		s.equity = s.markToMarket(candle.Close)
		if s.equity <= 0 {
			s.closeAllPositions(candle.Close, i)
			s.balance = 0
			s.equity = 0
			s.equityCurve = append(s.equityCurve, EquityPoint{
				Timestamp: candle.Timestamp,
				Balance:   0,
				Equity:    0,
				Drawdown:  100,
			})
			log.Printf("Bankrupt on bar %d (%s %s), stopping run", i, s.settings.Symbol, s.settings.Timeframe)
			break
		}

		action := s.solicit(decide, i, ind)
		s.apply(action, candle, i)

		s.equity = s.markToMarket(candle.Close)
		if s.equity > s.peak {
			s.peak = s.equity
		}
		dd := 0.0
		if s.peak > 0 {
			dd = (s.peak - s.equity) / s.peak * 100
		}
		if dd > s.maxDrawdown {
			s.maxDrawdown = dd
		}

		s.equityCurve = append(s.equityCurve, EquityPoint{
			Timestamp: candle.Timestamp,
			Balance:   round2(s.balance),
			Equity:    round2(s.equity),
			Drawdown:  round2(dd),
		})
	}

	if len(s.positions) > 0 && len(s.candles) > 0 {
		last := len(s.candles) - 1
		s.closeAllPositions(s.candles[last].Close, last)
	}

	return s.report()
}

// solicit calls the decision function and turns every failure into Hold
func (s *Simulator) solicit(decide DecisionFunc, i int, ind *indicators.Set) (action Action) {
	defer func() {
		if r := recover(); r != nil {
			action = Hold{}
		}
	}()
	if decide == nil {
		return Hold{}
	}

	a, err := decide(s.candles, i, ind, s.settings.Params, s.snapshot(i))
	if err != nil || a == nil {
		return Hold{}
	}
	return a
}

func (s *Simulator) apply(action Action, candle models.Candle, i int) {
	switch a := action.(type) {
	case EntryLong:
		s.enter(sideLong, a.Type, a.Price, candle, i)
	case EntryShort:
		s.enter(sideShort, a.Type, a.Price, candle, i)
	case Exit:
		price := a.Price
		if price == 0 {
			price = candle.Close
		}
		if a.Index != nil && *a.Index >= 0 && *a.Index < len(s.positions) {
			s.closePosition(*a.Index, price, i)
		} else {
			s.closeAllPositions(price, i)
		}
	case Cancel:
		if a.Index != nil && *a.Index >= 0 && *a.Index < len(s.pending) {
			s.pending = append(s.pending[:*a.Index], s.pending[*a.Index+1:]...)
		} else {
			s.pending = s.pending[:0]
		}
	}
}

func (s *Simulator) enter(side string, orderType OrderType, price float64, candle models.Candle, i int) {
	if orderType == "" {
		orderType = OrderMarket
	}
	if orderType == OrderMarket {
		s.openPosition(side, candle.Close, i, "MARKET")
		return
	}
	if price == 0 {
		price = candle.Close
	}
	s.pending = append(s.pending, pendingOrder{
		side:      side,
		orderType: orderType,
		price:     price,
		createdAt: i,
	})
}

// checkPendingOrders fills orders newest first. Each fill goes through the
// same checks as a market entry.
func (s *Simulator) checkPendingOrders(candle models.Candle, i int) {
	for p := len(s.pending) - 1; p >= 0; p-- {
		order := s.pending[p]
		filled := false

		switch order.orderType {
		case OrderStop:
			filled = (order.side == sideLong && candle.High >= order.price) ||
				(order.side == sideShort && candle.Low <= order.price)
		case OrderLimit:
			filled = (order.side == sideLong && candle.Low <= order.price) ||
				(order.side == sideShort && candle.High >= order.price)
		}
		if !filled {
			continue
		}

		verb := "BUY"
		if order.side == sideShort {
			verb = "SELL"
		}
		s.openPosition(order.side, order.price, i, verb+" "+strings.ToUpper(string(order.orderType)))
		s.pending = append(s.pending[:p], s.pending[p+1:]...)
	}
}

// openPosition applies reverse, the direction filters, the spot short rule,
// the concurrency cap and sizing in that order. Any failed check opens
// nothing.
func (s *Simulator) openPosition(side string, price float64, i int, orderType string) *position {
	if s.settings.Reverse {
		if side == sideLong {
			side = sideShort
		} else {
			side = sideLong
		}
	}

	if side == sideLong && !*s.settings.AllowLong {
		return nil
	}
	if side == sideShort && !*s.settings.AllowShort {
		return nil
	}
	if s.settings.MarketType == MarketSpot && side == sideShort {
		return nil
	}
	if len(s.positions) >= s.settings.MaxConcurrentOrders {
		return nil
	}

	usdt, coins := s.positionSize(price)
	if usdt == 0 {
		return nil
	}

	entryFee := usdt * s.fee
	s.balance -= entryFee
	s.stats.totalFees += entryFee

	pos := &position{
		id:         len(s.trades) + len(s.positions),
		side:       side,
		entryPrice: price,
		entryTime:  s.candles[i].Timestamp,
		entryIndex: i,
		coinSize:   coins,
		usdtSize:   usdt,
		orderType:  orderType,
	}
	s.positions = append(s.positions, pos)
	return pos
}

// positionSize floors the notional to a multiple of 100 under the cap and
// refuses anything below the minimum ticket.
func (s *Simulator) positionSize(entryPrice float64) (usdt, coins float64) {
	base := s.settings.InitialBalance
	if *s.settings.Compound {
		base = s.equity
	}
	raw := base * (s.settings.EquityPercent / 100) * s.settings.Leverage
	usdt = min(floorTo(raw, MinimumTicket), s.maxPosition)
	if usdt < MinimumTicket {
		return 0, 0
	}
	return usdt, usdt / entryPrice
}

func (s *Simulator) closePosition(idx int, price float64, i int) *Trade {
	if idx < 0 || idx >= len(s.positions) {
		return nil
	}
	pos := s.positions[idx]
	exitFee := pos.usdtSize * s.fee
	pnl := unrealized(pos, price)

	s.balance += pnl - exitFee
	s.stats.totalFees += exitFee

	duration := i - pos.entryIndex
	if pnl > 0 {
		s.stats.winTrades++
		s.stats.sumProfit += pnl
		s.stats.maxProfit = max(s.stats.maxProfit, pnl)
	} else {
		s.stats.loseTrades++
		s.stats.sumLoss += -pnl
		s.stats.maxLoss = min(s.stats.maxLoss, pnl)
	}
	if pos.side == sideLong {
		s.stats.longTrades++
	} else {
		s.stats.shortTrades++
	}
	s.stats.sumDuration += duration
	s.stats.maxDuration = max(s.stats.maxDuration, duration)

	s.trades = append(s.trades, Trade{
		EntryTime:  pos.entryTime,
		EntryPrice: pos.entryPrice,
		ExitTime:   s.candles[i].Timestamp,
		ExitPrice:  price,
		Side:       pos.side,
		PnL:        round2(pnl),
		Fee:        round2(exitFee + pos.usdtSize*s.fee),
		CoinSize:   pos.coinSize,
		UsdtSize:   pos.usdtSize,
		Size:       pos.coinSize,
		Duration:   duration,
		OrderType:  pos.orderType,
		Balance:    round2(s.balance),
	})
	s.positions = append(s.positions[:idx], s.positions[idx+1:]...)
	return &s.trades[len(s.trades)-1]
}

func (s *Simulator) closeAllPositions(price float64, i int) {
	for len(s.positions) > 0 {
		s.closePosition(0, price, i)
	}
}

func (s *Simulator) markToMarket(price float64) float64 {
	equity := s.balance
	for _, pos := range s.positions {
		equity += unrealized(pos, price)
	}
	return equity
}

func (s *Simulator) snapshot(i int) []PositionSnapshot {
	closePrice := s.candles[i].Close
	snap := make([]PositionSnapshot, len(s.positions))
	for k, pos := range s.positions {
		snap[k] = PositionSnapshot{
			Side:          strings.ToLower(pos.side),
			SideUpper:     pos.side,
			EntryPrice:    pos.entryPrice,
			CoinSize:      pos.coinSize,
			UsdtSize:      pos.usdtSize,
			UnrealizedPnl: unrealized(pos, closePrice),
			Duration:      i - pos.entryIndex,
		}
	}
	return snap
}

func (s *Simulator) report() *Report {
	st := s.stats
	total := len(s.trades)

	roi := 0.0
	if s.settings.InitialBalance > 0 {
		roi = (s.balance - s.settings.InitialBalance) / s.settings.InitialBalance * 100
	}
	winRate, avgDuration := 0.0, 0.0
	if total > 0 {
		winRate = float64(st.winTrades) / float64(total) * 100
		avgDuration = float64(st.sumDuration) / float64(total)
	}
	avgProfit, avgLoss := 0.0, 0.0
	if st.winTrades > 0 {
		avgProfit = st.sumProfit / float64(st.winTrades)
	}
	if st.loseTrades > 0 {
		avgLoss = st.sumLoss / float64(st.loseTrades)
	}

	return &Report{
		Trades:         s.trades,
		EquityCurve:    s.equityCurve,
		ROI:            round2(roi),
		MDD:            round2(s.maxDrawdown),
		WinRate:        round2(winRate),
		TotalTrades:    total,
		WinningTrades:  st.winTrades,
		LosingTrades:   st.loseTrades,
		LongTrades:     st.longTrades,
		ShortTrades:    st.shortTrades,
		MaxProfit:      round2(st.maxProfit),
		MaxLoss:        round2(st.maxLoss),
		AvgProfit:      round2(avgProfit),
		AvgLoss:        round2(avgLoss),
		AvgDuration:    round1(avgDuration),
		MaxDuration:    st.maxDuration,
		TotalFee:       round2(st.totalFees),
		FinalBalance:   round2(s.balance),
		InitialBalance: s.settings.InitialBalance,
		Symbol:         s.settings.Symbol,
		Timeframe:      s.settings.Timeframe,
		MarketType:     s.settings.MarketType,
	}
}

func unrealized(pos *position, price float64) float64 {
	if pos.side == sideLong {
		return (price - pos.entryPrice) / pos.entryPrice * pos.usdtSize
	}
	return (pos.entryPrice - price) / pos.entryPrice * pos.usdtSize
}
