package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/everestpanel/billing-backend/api"
	"github.com/everestpanel/billing-backend/db"
	"github.com/everestpanel/billing-backend/exchange"
	"github.com/everestpanel/billing-backend/internal/log"
	"github.com/everestpanel/billing-backend/provisioner"
	"github.com/everestpanel/billing-backend/stripe"
	"github.com/everestpanel/billing-backend/wings"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	log.Init("debug", "stdout")
	// define flags
	flag.StringP("host", "h", "0.0.0.0", "listen address")
	flag.IntP("port", "p", 8080, "listen port")
	flag.StringP("secret", "s", "", "API secret")
	flag.String("mongo-url", "", "The URL of the MongoDB server")
	flag.String("mongo-db", "billing-backend", "The name of the MongoDB database")
	flag.String("exchange-provider", "exchangerate.host", "exchange rate provider name")
	flag.String("exchange-api-key", "", "exchange rate provider API key")
	flag.String("redis-url", "", "Redis URL for webhook event dedup (in-memory store when empty)")
	// parse flags
	flag.Parse()
	// initialize Viper
	viper.SetEnvPrefix("EVEREST")
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		panic(err)
	}
	viper.AutomaticEnv()
	// read the configuration
	host := viper.GetString("host")
	port := viper.GetInt("port")
	secret := viper.GetString("secret")
	if secret == "" {
		log.Fatal("secret is required")
	}
	mongoURL := viper.GetString("mongo-url")
	mongoDB := viper.GetString("mongo-db")
	// initialize the MongoDB database
	database, err := db.New(mongoURL, mongoDB)
	if err != nil {
		log.Fatalf("could not create the MongoDB database: %v", err)
	}
	defer database.Close()
	// create the stripe service with its webhook event store
	stripeConfig, err := stripe.NewConfig()
	if err != nil {
		log.Fatalf("invalid stripe configuration: %v", err)
	}
	var events stripe.EventStore
	if redisURL := viper.GetString("redis-url"); redisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		redisEvents, err := stripe.NewRedisEventStore(ctx, redisURL, 0)
		if err != nil {
			log.Fatalf("could not connect to redis: %v", err)
		}
		defer func() {
			if err := redisEvents.Close(); err != nil {
				log.Warnw("failed to close redis event store", "error", err)
			}
		}()
		events = redisEvents
	}
	daemon := wings.New()
	stripeService, err := stripe.NewService(stripeConfig, database, provisioner.New(database, daemon), events)
	if err != nil {
		log.Fatalf("could not create the stripe service: %v", err)
	}
	// create the exchange rate service
	exchangeService, err := exchange.New(&exchange.Config{
		DB:       database,
		Provider: viper.GetString("exchange-provider"),
		APIKey:   viper.GetString("exchange-api-key"),
	})
	if err != nil {
		log.Fatalf("could not create the exchange service: %v", err)
	}
	// create the local API server
	api.New(&api.Config{
		Host:     host,
		Port:     port,
		Secret:   secret,
		DB:       database,
		Stripe:   stripeService,
		Exchange: exchangeService,
		Wings:    daemon,
	}).Start()
	// wait forever, as the server is running in a goroutine
	log.Infow("server started", "host", host, "port", port)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
