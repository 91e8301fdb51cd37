package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/Trazabilidad-api/internal/application/alerts"
	"github.com/jhoicas/Trazabilidad-api/internal/application/ledger"
	"github.com/jhoicas/Trazabilidad-api/internal/application/stock"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Trazabilidad-api/pkg/clock"
	"github.com/jhoicas/Trazabilidad-api/pkg/config"
	"github.com/jhoicas/Trazabilidad-api/pkg/logger"
)

// El binario es el daemon de vigilancia del almacén: audita los invariantes
// del ledger al arrancar y barre las alertas de inventario cada hora. Los
// casos de uso de stock, producción, envíos y trazabilidad son la superficie
// de librería que monta el transporte que corresponda.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   "info",
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Msg("iniciando motor de trazabilidad")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	clk := clock.System{}
	txRunner := postgres.NewTxRunner(pool)
	repos := postgres.NewRepos(pool) // lecturas fuera de transacción

	ledgerUC := ledger.New(txRunner, clk)
	stockUC := stock.New(txRunner, ledgerUC, repos, clk)
	alertsUC := alerts.New(repos, clk, cfg.Alerts.ExpiryWindowDays)

	// Auditoría de arranque: la cantidad cacheada de cada lote debe cuadrar
	// con su historia de movimientos y su desglose por ubicación.
	auditLog := log.Component("auditoria")
	discrepancies, err := stockUC.Audit(ctx)
	if err != nil {
		auditLog.Fatal().Err(err).Msg("auditoría del ledger")
	}
	for _, d := range discrepancies {
		auditLog.Error().
			Str("lote", d.LotNumber).
			Str("cacheada", d.Cached.String()).
			Str("suma_ledger", d.LedgerSum.String()).
			Str("suma_ubicaciones", d.LocationsSum.String()).
			Msg("lote con cantidades descuadradas")
	}
	auditLog.Info().Int("descuadres", len(discrepancies)).Msg("auditoría del ledger completada")

	// Barrido periódico de alertas: caducidades, stock mínimo y bloqueos.
	sweepLog := log.Component("alertas")
	sweep := func() {
		list, err := alertsUC.Generate(ctx)
		if err != nil {
			sweepLog.Error().Err(err).Msg("generar alertas")
			return
		}
		for _, alert := range list {
			sweepLog.Warn().
				Str("tipo", alert.Type).
				Str("severidad", alert.Severity).
				Str("producto", alert.ProductID).
				Str("lote", alert.LotID).
				Msg(alert.Message)
		}
	}
	sweep()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			sweep()
		case <-quit:
			log.Info().Msg("señal de apagado recibida, deteniendo")
			return
		}
	}
}
