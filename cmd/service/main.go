package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vocdoni/donations-backend/api"
	"github.com/vocdoni/donations-backend/donations"
	"github.com/vocdoni/donations-backend/stripe"
	"go.vocdoni.io/dvote/log"
)

func main() {
	// define flags
	flag.StringP("host", "h", "0.0.0.0", "listen address")
	flag.IntP("port", "p", 8080, "listen port")
	flag.StringP("logLevel", "l", "info", "log level (debug, info, warn, error)")
	flag.StringP("stripeSecret", "s", "", "Stripe secret key")
	flag.String("stripeAPIURL", "", "Stripe API base URL, empty for the default endpoint")
	flag.Duration("stripeTimeout", stripe.DefaultHTTPTimeout, "timeout of each request to Stripe")
	flag.StringSlice("corsOrigins", nil, "origins allowed to call the API from a browser")
	// parse flags
	flag.Parse()
	// initialize Viper
	viper.SetEnvPrefix("DONATIONS")
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		panic(err)
	}
	viper.AutomaticEnv()
	// read the configuration
	log.Init(viper.GetString("logLevel"), "stdout", nil)
	host := viper.GetString("host")
	port := viper.GetInt("port")
	stripeSecret := viper.GetString("stripeSecret")
	if stripeSecret == "" {
		log.Fatal("stripeSecret is required")
	}
	// create the Stripe client, the secret is only held by this client
	stripeClient, err := stripe.NewClient(&stripe.Config{
		APIKey:      stripeSecret,
		APIURL:      viper.GetString("stripeAPIURL"),
		HTTPTimeout: viper.GetDuration("stripeTimeout"),
	})
	if err != nil {
		log.Fatalf("could not create the Stripe client: %v", err)
	}
	provisioner, err := donations.NewProvisioner(stripeClient)
	if err != nil {
		log.Fatalf("could not create the donations provisioner: %v", err)
	}
	// create the local API server
	server := api.New(&api.Config{
		Host:        host,
		Port:        port,
		Provisioner: provisioner,
		CORSOrigins: splitList(viper.GetStringSlice("corsOrigins")),
	})
	server.Start()
	// wait until the process is asked to stop, as the server is running in a goroutine
	log.Infow("server started", "host", host, "port", port)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Warnw("server shutdown", "error", err)
	}
}

// splitList flattens comma separated values, as list values coming from the
// environment are not split by viper.
func splitList(values []string) []string {
	var list []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
	}
	return list
}
