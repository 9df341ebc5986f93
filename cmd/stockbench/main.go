package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/d60-Lab/venda-certa/config"
	"github.com/d60-Lab/venda-certa/internal/model"
	"github.com/d60-Lab/venda-certa/internal/repository"
	"github.com/d60-Lab/venda-certa/internal/service"
	"github.com/d60-Lab/venda-certa/pkg/apperr"
	"github.com/d60-Lab/venda-certa/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	if err := repository.AutoMigrate(db); err != nil {
		panic(err)
	}
	store := repository.NewStore(db)

	relay := service.NewOutboxRelay(store, service.LogEventPublisher{}, 200, 200*time.Millisecond)
	stop := relay.Start(cfg.Order.RelayWorkers)
	orders := service.NewOrderService(store, service.OrderServiceOptions{Events: relay})

	ctx := context.Background()

	N := envInt("N", 2000)
	CONC := envInt("CONC", 16)
	STOCK := envInt("STOCK", 500)
	QTY := envInt("QTY", 1)

	// 一个客户、一个限量商品：所有请求争抢同一行库存
	tag := uuid.New().String()[:8]
	customer := &model.Customer{Name: "bench " + tag, Email: "bench-" + tag + "@example.com", TotalSpent: decimal.Zero}
	if err := store.Customers.Create(ctx, customer); err != nil {
		panic(err)
	}
	product := &model.Product{
		SKU:    "BENCH-" + tag,
		Name:   "bench " + tag,
		Price:  decimal.RequireFromString("9.90"),
		Stock:  STOCK,
		Active: true,
	}
	if err := store.Products.Create(ctx, product); err != nil {
		panic(err)
	}

	var ok, rejected, failed atomic.Int64
	latCh := make(chan time.Duration, N)
	feed := make(chan int, N)
	for i := 0; i < N; i++ {
		feed <- i
	}
	close(feed)

	workers := CONC
	if workers > N {
		workers = N
	}
	done := make(chan struct{}, workers)
	t0 := time.Now()
	for w := 0; w < workers; w++ {
		go func() {
			for range feed {
				st := time.Now()
				_, err := orders.Create(ctx, service.CreateOrderInput{
					CustomerID:    customer.ID,
					PaymentMethod: model.PaymentPix,
					Items:         []service.CreateOrderItemInput{{ProductID: product.ID, Quantity: QTY}},
				})
				latCh <- time.Since(st)
				switch {
				case err == nil:
					ok.Add(1)
				case apperr.Is(err, apperr.KindInsufficientStock):
					rejected.Add(1)
				default:
					failed.Add(1)
				}
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < workers; w++ {
		<-done
	}
	close(latCh)
	total := time.Since(t0)

	lats := make([]time.Duration, 0, N)
	for d := range latCh {
		lats = append(lats, d)
	}

	// 等待事件外发追平
	drainStart := time.Now()
	for {
		pending, err := store.Outbox.CountPending(ctx)
		if err != nil || pending == 0 || time.Since(drainStart) > time.Minute {
			break
		}
		relay.Notify()
		time.Sleep(50 * time.Millisecond)
	}
	drain := time.Since(drainStart)
	stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	_ = stop(stopCtx)
	cancel()

	final, err := store.Products.GetByID(ctx, product.ID)
	if err != nil {
		panic(err)
	}
	sold := int(ok.Load()) * QTY

	fmt.Printf("N=%d, CONC=%d, STOCK=%d, QTY=%d\n", N, CONC, STOCK, QTY)
	fmt.Printf("Create latency total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		total, total/time.Duration(N), pct(lats, 0.50), pct(lats, 0.95), pct(lats, 0.99))
	fmt.Printf("Orders: ok=%d insufficient_stock=%d errors=%d\n", ok.Load(), rejected.Load(), failed.Load())
	fmt.Printf("Stock: initial=%d final=%d sold=%d sales_count=%d\n", STOCK, final.Stock, sold, final.SalesCount)
	published, pubFailed := relay.Counters()
	fmt.Printf("Outbox: published=%d failed=%d drain=%v\n", published, pubFailed, drain)

	if final.Stock < 0 || sold > STOCK || final.Stock != STOCK-sold {
		fmt.Println("FAIL: stock ledger inconsistent")
		os.Exit(1)
	}
	fmt.Println("OK: no oversell, stock ledger consistent")
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}
