package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jackc/feedreader/backend"
	"github.com/urfave/cli"
	"github.com/vaughan0/go-ini"
)

const version = "0.1.0"

var serverFlags = []cli.Flag{
	cli.StringFlag{Name: "address, a", Value: "127.0.0.1", Usage: "address to listen on"},
	cli.StringFlag{Name: "port, p", Value: "8080", Usage: "port to listen on"},
	cli.StringFlag{Name: "config, c", Value: "feedreader.conf", Usage: "path to config file"},
	cli.StringFlag{Name: "static-url", Value: "", Usage: "reverse proxy static asset requests to URL"},
}

func main() {
	app := cli.NewApp()
	app.Name = "feedreader"
	app.Usage = "Single page RSS feed reader"
	app.Version = version

	app.Commands = []cli.Command{
		{
			Name:        "server",
			ShortName:   "s",
			Usage:       "run the server",
			Description: "serve the reader page and its API",
			Flags:       serverFlags,
			Action:      Serve,
		},
		{
			Name:        "check",
			Usage:       "validate the configured feeds",
			Description: "load the config file, validate the feed list, and print it",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "config, c", Value: "feedreader.conf", Usage: "path to config file"},
			},
			Action: Check,
		},
		{
			Name:        "fetch",
			Usage:       "load one feed and print its entries",
			ArgsUsage:   "index",
			Description: "load the feed at index through the feed loader and print its entries",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "config, c", Value: "feedreader.conf", Usage: "path to config file"},
			},
			Action: Fetch,
		},
	}

	app.Run(os.Args)
}

func loadHTTPConfig(c *cli.Context, conf ini.File) (backend.HTTPConfig, error) {
	config := backend.HTTPConfig{}
	config.ListenAddress = c.String("address")
	config.ListenPort = c.String("port")
	config.StaticURL = c.String("static-url")

	if !c.IsSet("address") {
		if address, ok := conf.Get("server", "address"); ok {
			config.ListenAddress = address
		}
	}

	if !c.IsSet("port") {
		if port, ok := conf.Get("server", "port"); ok {
			config.ListenPort = port
		}
	}

	if config.ListenAddress == "" {
		return config, errors.New("Missing server address")
	}
	if config.ListenPort == "" {
		return config, errors.New("Missing server port")
	}

	return config, nil
}

func Serve(c *cli.Context) {
	conf, err := backend.LoadConfig(c.String("config"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	httpConfig, err := loadHTTPConfig(c, conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := backend.NewLogger(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	feeds, err := backend.LoadFeeds(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fetchConfig, err := backend.LoadFetchConfig(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	store, closeStore, err := backend.NewStore(context.Background(), conf, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeStore()

	fetcher := backend.NewFetcher(fetchConfig, store, logger.New("module", "fetcher"))
	reader, err := backend.NewReader(feeds, fetcher, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	handler, err := backend.NewAppServer(httpConfig, reader, logger.New("module", "http"))
	if err != nil {
		logger.Crit(err.Error())
		os.Exit(1)
	}

	go reader.Preload(context.Background(), fetchConfig.MaxConcurrent)

	listenAt := fmt.Sprintf("%s:%s", httpConfig.ListenAddress, httpConfig.ListenPort)
	fmt.Printf("Starting to listen on: %s\n", listenAt)

	server := &http.Server{
		Addr:              listenAt,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		os.Stderr.WriteString("Could not start web server!\n")
		os.Exit(1)
	}
}

func Check(c *cli.Context) {
	conf, err := backend.LoadConfig(c.String("config"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	feeds, err := backend.LoadFeeds(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for i, f := range feeds {
		fmt.Printf("%d\t%s\t%s\n", i, f.Name, f.URL)
	}
}

func Fetch(c *cli.Context) {
	if len(c.Args()) != 1 {
		cli.ShowCommandHelp(c, c.Command.Name)
		os.Exit(1)
	}

	index, err := strconv.Atoi(c.Args().First())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad feed index: %v\n", err)
		os.Exit(1)
	}

	conf, err := backend.LoadConfig(c.String("config"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := backend.NewLogger(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	feeds, err := backend.LoadFeeds(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fetchConfig, err := backend.LoadFetchConfig(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fetcher := backend.NewFetcher(fetchConfig, nil, logger.New("module", "fetcher"))
	reader, err := backend.NewReader(feeds, fetcher, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchConfig.Timeout)
	defer cancel()

	if err := <-reader.Loader.Load(ctx, index); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	doc, err := reader.Container.Document()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("%s: %d entries\n", feeds[index].Name, reader.EntryCount())
	doc.Find(".feed .entry h2").Each(func(i int, s *goquery.Selection) {
		fmt.Printf("  %s\n", s.Text())
	})
}
