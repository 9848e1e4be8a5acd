// Package main 提供进程内网格模拟器
//
// 在内存传输上按给定拓扑创建若干节点，两两连接后
// 端到端发送一条文本与一条紧急广播，并打印各节点的拓扑快照。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	blemesh "github.com/dep2p/go-blemesh"
	"github.com/dep2p/go-blemesh/config"
	"github.com/dep2p/go-blemesh/internal/util/logger"
	"github.com/dep2p/go-blemesh/pkg/transport/memory"
)

var log = logger.Logger("meshsim")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
var (
	nodeCount   = flag.Int("nodes", 4, "节点数量（至少 2）")
	topology    = flag.String("topology", "line", "拓扑 (line/ring/full)")
	oneHop      = flag.Bool("one-hop", false, "只学习一跳邻居（关闭距离向量）")
	hello       = flag.Duration("hello", 2*time.Second, "Hello 周期")
	configFile  = flag.String("config", "", "配置文件路径（覆盖预设）")
	metricsAddr = flag.String("metrics", "", "Prometheus 指标监听地址，如 :9100；为空不启动")
	verbose     = flag.Bool("v", false, "输出调试日志")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *nodeCount < 2 {
		return errors.New("至少需要 2 个节点")
	}
	if *verbose {
		logger.SetGlobalLevel(slog.LevelDebug)
	}

	cfg, err := buildConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ids := make([]string, *nodeCount)
	for i := range ids {
		ids[i] = fmt.Sprintf("node-%02d", i+1)
	}

	air := memory.NewAir()
	links, err := topologyLinks(*topology, ids)
	if err != nil {
		return err
	}
	air.SetRange(inRange(links))

	nodes := make(map[string]*blemesh.Node, len(ids))
	defer func() {
		for _, n := range nodes {
			_ = n.Close()
		}
	}()
	for _, id := range ids {
		tr, err := air.NewTransport(id, memory.WithName(id))
		if err != nil {
			return err
		}
		n, err := blemesh.New(
			blemesh.WithConfig(cfg),
			blemesh.WithTransport(tr),
			blemesh.WithDeviceName(id),
		)
		if err != nil {
			return fmt.Errorf("创建节点 %s: %w", id, err)
		}
		nodes[id] = n
		if err := n.Start(ctx); err != nil {
			return fmt.Errorf("启动节点 %s: %w", id, err)
		}
	}
	fmt.Printf("已启动 %d 个节点，拓扑 %s\n", len(ids), *topology)

	for _, l := range links {
		if err := connect(ctx, nodes[l[0]], l[1]); err != nil {
			return err
		}
	}

	// 一跳模式下只能到达直接邻居
	first, target := nodes[ids[0]], nodes[ids[len(ids)-1]]
	if !cfg.Routing.DistanceVector {
		target = nodes[links[0][1]]
	}
	if err := exchangeText(ctx, first, target); err != nil {
		return err
	}
	if err := floodEmergency(ctx, first, nodes); err != nil {
		return err
	}

	for _, id := range ids {
		printTopology(nodes[id])
	}

	if *metricsAddr == "" {
		return nil
	}
	return serveMetrics(ctx, first)
}

// buildConfig 模拟器预设 + 配置文件 + 命令行覆盖
func buildConfig() (*config.Config, error) {
	cfg := blemesh.PresetSimulator.Config()
	if *configFile != "" {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		cfg.Transport.AdvertiseOnStart = true
		cfg.Transport.ScanOnStart = true
	}
	if *oneHop {
		cfg.Routing.DistanceVector = false
	}
	if *hello > 0 {
		cfg.Routing.HelloInterval = config.Duration(*hello)
		cfg.Routing.CleanupInterval = config.Duration(2 * *hello)
		cfg.Routing.RouteTimeout = config.Duration(10 * *hello)
		if cfg.Session.LivenessWindow <= cfg.Routing.HelloInterval {
			cfg.Session.LivenessWindow = config.Duration(3 * *hello)
		}
	}
	return cfg, cfg.Validate()
}

// ═══════════════════════════════════════════════════════════════════════════
// 拓扑
// ═══════════════════════════════════════════════════════════════════════════

func topologyLinks(name string, ids []string) ([][2]string, error) {
	var links [][2]string
	name = strings.ToLower(name)
	switch name {
	case "line", "ring":
		for i := 0; i+1 < len(ids); i++ {
			links = append(links, [2]string{ids[i], ids[i+1]})
		}
		if name == "ring" && len(ids) > 2 {
			links = append(links, [2]string{ids[len(ids)-1], ids[0]})
		}
	case "full":
		for i := range ids {
			for j := i + 1; j < len(ids); j++ {
				links = append(links, [2]string{ids[i], ids[j]})
			}
		}
	default:
		return nil, fmt.Errorf("未知拓扑: %s", name)
	}
	return links, nil
}

func inRange(links [][2]string) func(a, b string) bool {
	adj := make(map[[2]string]bool, 2*len(links))
	for _, l := range links {
		adj[l] = true
		adj[[2]string{l[1], l[0]}] = true
	}
	return func(a, b string) bool { return adj[[2]string{a, b}] }
}

// ═══════════════════════════════════════════════════════════════════════════
// 场景
// ═══════════════════════════════════════════════════════════════════════════

func connect(ctx context.Context, n *blemesh.Node, peerID string) error {
	err := waitUntil(ctx, 5*time.Second, func() bool {
		_, ok := n.Peer(peerID)
		return ok
	})
	if err != nil {
		return fmt.Errorf("%s 未发现 %s: %w", n.LocalID(), peerID, err)
	}
	if err := n.Connect(ctx, peerID); err != nil {
		return fmt.Errorf("%s 连接 %s: %w", n.LocalID(), peerID, err)
	}
	log.Info("linked", "from", n.LocalID(), "to", peerID)
	return nil
}

func exchangeText(ctx context.Context, from, to *blemesh.Node) error {
	got := make(chan *blemesh.Message, 1)
	cancel := to.OnMessageReceived(func(_ string, msg *blemesh.Message) {
		select {
		case got <- msg:
		default:
		}
	})
	defer cancel()

	// 距离向量需要若干 Hello 周期才能把路由传到远端
	err := waitUntil(ctx, 20**hello+5*time.Second, func() bool {
		for _, r := range from.Routes() {
			if r.Destination == to.LocalID() {
				return true
			}
		}
		return false
	})
	if err != nil {
		return fmt.Errorf("%s 没有到 %s 的路由: %w", from.LocalID(), to.LocalID(), err)
	}

	sent, err := from.SendText(ctx, to.LocalID(), "hello from "+from.LocalID())
	if err != nil {
		return err
	}
	select {
	case msg := <-got:
		fmt.Printf("文本 %s 送达 %s，路径 %v\n", sent.ID, to.LocalID(), msg.Route)
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("文本 %s 未送达", sent.ID)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func floodEmergency(ctx context.Context, from *blemesh.Node, nodes map[string]*blemesh.Node) error {
	em, err := from.SendSafetyWarning(ctx, "simulated warning", nil)
	if err != nil {
		return err
	}
	err = waitUntil(ctx, 5*time.Second, func() bool {
		for _, n := range nodes {
			if !hasEmergency(n, em.ID) {
				return false
			}
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("紧急广播未到达全部节点: %w", err)
	}
	fmt.Printf("紧急广播 %s 已到达全部 %d 个节点\n", em.ID, len(nodes))
	return nil
}

func hasEmergency(n *blemesh.Node, id string) bool {
	for _, m := range n.EmergencyMessages() {
		if m.ID == id {
			return true
		}
	}
	return false
}

func printTopology(n *blemesh.Node) {
	snap := n.TopologySnapshot()
	fmt.Printf("\n%s  连接 %d  路由 %d\n", snap.LocalID, len(snap.Connections), len(snap.Routes))
	for _, r := range snap.Routes {
		fmt.Printf("  %-10s via %-10s cost %d\n", r.Destination, r.NextHop, r.Cost)
	}
}

func serveMetrics(ctx context.Context, n *blemesh.Node) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(n.Gatherer(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	fmt.Printf("\n指标地址 http://%s/metrics，按 Ctrl+C 退出\n", *metricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func waitUntil(ctx context.Context, timeout time.Duration, cond func() bool) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	t := time.NewTicker(20 * time.Millisecond)
	defer t.Stop()
	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}
