package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/d60-Lab/venda-certa/config"
	"github.com/d60-Lab/venda-certa/internal/cache"
	"github.com/d60-Lab/venda-certa/internal/model"
	"github.com/d60-Lab/venda-certa/internal/repository"
	"github.com/d60-Lab/venda-certa/internal/service"
	"github.com/d60-Lab/venda-certa/pkg/database"
)

type statsRange struct {
	from string
	to   string
}

type scenarioResult struct {
	durations   []time.Duration
	hits        int64
	misses      int64
	cacheKeys   int
	memoryBytes int64
}

func main() {
	ctx := context.Background()
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	mustDo(repository.AutoMigrate(db))
	store := repository.NewStore(db)

	orderCount := 20000
	if s := os.Getenv("ORDERS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			orderCount = n
		}
	}

	fmt.Println("Setting up test data...")
	days := seedOrders(ctx, store, orderCount)
	fmt.Printf("Test data ready: %d orders over %d days\n", orderCount, days)

	addr := cfg.Redis.Addr
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		addr = v
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis at %s: %v", addr, err))
	}

	reqs := makeRanges(3000, days)
	statsCache := cache.NewStatsCache(client, 10*time.Minute)

	noCache := runScenario(ctx, client, nil, service.NewOrderService(store, service.OrderServiceOptions{}), reqs, false)
	cached := runScenario(ctx, client, statsCache, service.NewOrderService(store, service.OrderServiceOptions{Cache: statsCache}), reqs, true)

	fmt.Printf("\nStats latency (%d req, %d orders)\n", len(reqs), orderCount)
	for _, row := range []struct {
		name string
		r    scenarioResult
	}{{"No cache", noCache}, {"Redis stats cache", cached}} {
		fmt.Printf("%-18s avg=%v p95=%v p99=%v hits=%d misses=%d cache_keys=%d mem=%s\n",
			row.name, avg(row.r.durations), pct(row.r.durations, 0.95), pct(row.r.durations, 0.99),
			row.r.hits, row.r.misses, row.r.cacheKeys, formatBytes(row.r.memoryBytes))
	}
}

// seedOrders 直接写入订单头，分布在过去 90 天
func seedOrders(ctx context.Context, store *repository.Store, n int) int {
	const days = 90
	tag := uuid.New().String()[:8]
	customer := &model.Customer{Name: "stats " + tag, Email: "stats-" + tag + "@example.com", TotalSpent: decimal.Zero}
	mustDo(store.Customers.Create(ctx, customer))

	rnd := rand.New(rand.NewSource(7))
	now := time.Now().UTC()
	batch := make([]model.Order, 0, 1000)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		mustDo(store.DB().WithContext(ctx).Omit("Customer", "Items").CreateInBatches(&batch, 500).Error)
		batch = batch[:0]
	}
	for i := 0; i < n; i++ {
		total := decimal.NewFromInt(int64(10 + rnd.Intn(490)))
		id := uuid.New().String()
		batch = append(batch, model.Order{
			ID:            id,
			CustomerID:    customer.ID,
			OrderNumber:   "BENCH-" + strings.ToUpper(strings.ReplaceAll(id, "-", "")[:16]),
			Status:        model.OrderStatuses[rnd.Intn(len(model.OrderStatuses))],
			PaymentMethod: model.PaymentPix,
			Subtotal:      total,
			Discount:      decimal.Zero,
			DeliveryFee:   decimal.Zero,
			Total:         total,
			CreatedAt:     now.Add(-time.Duration(rnd.Intn(days*24)) * time.Hour),
		})
		if len(batch) == cap(batch) {
			flush()
		}
	}
	flush()
	return days
}

func runScenario(ctx context.Context, client *redis.Client, sc *cache.StatsCache, svc service.OrderService, reqs []statsRange, warm bool) scenarioResult {
	client.FlushDB(ctx)
	if sc != nil {
		sc.Reset()
	}

	if warm {
		fmt.Print("  Warming cache...")
		for _, r := range reqs {
			must(svc.Stats(ctx, r.from, r.to))
		}
		fmt.Println(" done")
	}

	fmt.Print("  Running benchmark...")
	out := make([]time.Duration, 0, len(reqs))
	for _, r := range reqs {
		start := time.Now()
		must(svc.Stats(ctx, r.from, r.to))
		out = append(out, time.Since(start))
	}
	fmt.Println(" done")

	res := scenarioResult{durations: out}
	if sc != nil {
		res.hits, res.misses = sc.Counters()
	}
	keys, _ := client.Keys(ctx, "venda-certa:stats:*").Result()
	res.cacheKeys = len(keys)
	if info, err := client.Info(ctx, "memory").Result(); err == nil {
		res.memoryBytes = parseRedisMemory(info)
	}
	return res
}

// makeRanges 常见看板查询：全部、最近 7/30 天，以及少量任意区间
func makeRanges(n, days int) []statsRange {
	today := time.Now().UTC()
	day := func(back int) string { return today.AddDate(0, 0, -back).Format("2006-01-02") }
	rnd := rand.New(rand.NewSource(42))
	out := make([]statsRange, n)
	for i := range out {
		switch x := rnd.Float64(); {
		case x < 0.3:
			out[i] = statsRange{}
		case x < 0.6:
			out[i] = statsRange{from: day(7)}
		case x < 0.85:
			out[i] = statsRange{from: day(30)}
		default:
			a := rnd.Intn(days)
			out[i] = statsRange{from: day(a + rnd.Intn(10)), to: day(a)}
		}
	}
	return out
}

// parseRedisMemory 取 INFO memory 中的 used_memory
func parseRedisMemory(info string) int64 {
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "used_memory:"); ok {
			n, _ := strconv.ParseInt(v, 10, 64)
			return n
		}
	}
	return 0
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}
