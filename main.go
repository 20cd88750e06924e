package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/grandhotel/aria/agent/contract"
	crmx "github.com/grandhotel/aria/agent/crm"
	llmx "github.com/grandhotel/aria/agent/llm"
	retrievalx "github.com/grandhotel/aria/agent/retrieval"
	sessionx "github.com/grandhotel/aria/agent/session"
	summaryx "github.com/grandhotel/aria/agent/summary"
	orchestratorx "github.com/grandhotel/aria/orchestrator"
	configx "github.com/grandhotel/aria/pkg/config"
	_ "github.com/grandhotel/aria/pkg/logger/autoload"
	ttsx "github.com/grandhotel/aria/pkg/tts"
	serverx "github.com/grandhotel/aria/server"
)

func main() {
	ctx := context.Background()

	llmCfg := configx.MustNew[llmx.Config]("LLM")
	completer, err := llmx.New(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("completion backend init failed")
	}

	redisCfg := configx.MustNew[ttsx.RedisConfig]("REDIS")
	artifacts := ttsx.NewRedisArtifactStore(*redisCfg)

	ttsCfg := configx.MustNew[ttsx.Config]("TTS")
	renderer, err := ttsx.NewClient(*ttsCfg, artifacts)
	if err != nil {
		log.Fatal().Err(err).Msg("speech renderer init failed")
	}

	// The knowledge base is optional. Without it every policy question
	// falls back to the neutral no-match fragment.
	var retriever contractx.Retriever
	if chromaCfg, err := configx.New[retrievalx.ChromaConfig]("CHROMA"); err != nil {
		log.Warn().Err(err).Msg("knowledge base not configured, retrieval disabled")
	} else if chroma, err := retrievalx.NewChromaRetriever(*chromaCfg); err != nil {
		log.Warn().Err(err).Msg("knowledge base client init failed, retrieval disabled")
	} else {
		retriever = chroma
	}

	// The CRM sink is optional too. Without it calls still run; summaries
	// are logged and dropped.
	var sink contractx.Sink
	crmCfg := configx.MustNew[crmx.Config]("CRM")
	if crmCfg.DSN == "" {
		log.Warn().Msg("CRM DSN not configured, call logging disabled")
	} else if pg, err := crmx.NewPostgresSink(*crmCfg); err != nil {
		log.Warn().Err(err).Msg("CRM unreachable, call logging disabled")
	} else {
		sink = pg
		defer pg.Close()
	}

	retryCfg := configx.MustNew[summaryx.RetryPolicy]("SUMMARY")
	summarizer := summaryx.New(completer, sink, *retryCfg)

	store := sessionx.NewMemoryStore()
	orch, err := orchestratorx.New(
		store,
		retrievalx.NewAdapter(retriever),
		nil,
		completer,
		renderer,
		summarizer,
		orchestratorx.Config{Voice: ttsCfg.Voice},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("orchestrator init failed")
	}

	serverCfg := configx.MustNew[serverx.Config]("SERVER")
	srv := &http.Server{
		Addr:    serverCfg.Addr,
		Handler: serverx.NewRouter(&serverx.Handler{Calls: orch, Audio: renderer}),
	}

	go func() {
		log.Info().Str("addr", serverCfg.Addr).Msg("receptionist listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}
