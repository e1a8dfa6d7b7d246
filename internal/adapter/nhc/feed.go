package nhc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// feedItem is one RSS advisory. The nhc namespace extension is present on
// wallet-level items and absent on basin outlooks.
type feedItem struct {
	Title       string       `xml:"title"`
	Description string       `xml:"description"`
	PubDate     string       `xml:"pubDate"`
	Cyclone     *feedCyclone `xml:"Cyclone"`
}

type feedCyclone struct {
	Center   string `xml:"center"`
	Type     string `xml:"type"`
	Name     string `xml:"name"`
	ATCF     string `xml:"atcf"`
	Datetime string `xml:"datetime"`
	Movement string `xml:"movement"`
	Pressure string `xml:"pressure"`
	Wind     string `xml:"wind"`
	Headline string `xml:"headline"`
}

type rssFeed struct {
	Channel struct {
		Items []feedItem `xml:"item"`
	} `xml:"channel"`
}

func parseFeed(body []byte) ([]feedItem, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	// The feed declares ISO-8859-1 on occasion; treat it as-is.
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var feed rssFeed
	if err := dec.Decode(&feed); err != nil {
		return nil, fmt.Errorf("parse rss: %w", err)
	}
	return feed.Channel.Items, nil
}
