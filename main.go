package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GrainArc/TinFlow/config"
	"github.com/GrainArc/TinFlow/metrics"
	"github.com/GrainArc/TinFlow/routers"
	"github.com/GrainArc/TinFlow/services"
	"github.com/gin-gonic/gin"
)

// 原始脚本的默认地块
const defaultParcel = "9750925303"

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: tinflow [-config config.xml] [serve | run <parcel> [dem]]\n")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "config.xml", "XML config file")
	flag.Usage = usage
	flag.Parse()

	cfg := config.Default()
	if _, err := os.Stat(*configPath); err == nil {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("加载配置失败: %v", err)
		}
		cfg = loaded
	} else {
		log.Printf("未找到配置 %s，使用默认值", *configPath)
	}
	config.MainConfig = cfg

	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to open cache database: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	reg := metrics.DefaultRegistry()
	var parcels services.PolygonFetcher = services.NewParcelService(cfg.WfsURL, cfg.WfsLayer, cfg.WfsIDField)
	if cfg.ParcelFile != "" {
		parcels = services.NewFileParcelService(cfg.ParcelFile, cfg.WfsIDField, cfg.CRS)
	}
	flow := services.NewFlowService(cfg, services.NewMeshCacheService(db), parcels, reg)

	args := flag.Args()
	cmd := "serve"
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "serve":
		serve(cfg, flow, reg)
	case "run":
		parcel := defaultParcel
		if len(args) > 1 {
			parcel = args[1]
		}
		dem := ""
		if len(args) > 2 {
			dem = args[2]
		}
		if err := runParcel(flow, parcel, dem); err != nil {
			log.Fatalf("流程失败: %v", err)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func runParcel(flow *services.FlowService, parcel, dem string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := flow.Run(ctx, services.RunRequest{ParcelID: parcel, Dem: dem})
	if err != nil {
		return err
	}

	run := result.Run
	log.Printf("地块 %s: %d 个三角形, 边界汇 %d, 洼地 %d, 环 %d, 最大汇流 %.2f",
		run.ParcelID, run.Triangles, run.BoundarySinks, run.InteriorPits, run.Cycles, run.MaxAccumulation)
	for _, f := range result.Files {
		fmt.Println(f)
	}
	if result.Archive != "" {
		fmt.Println(result.Archive)
	}
	return nil
}

func serve(cfg config.Config, flow *services.FlowService, reg *metrics.Registry) {
	r := gin.Default()
	routers.FlowRouters(r, flow, reg)

	srv := &http.Server{
		Addr:    cfg.MainRouter,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on %s", cfg.MainRouter)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
