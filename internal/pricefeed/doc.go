// Package pricefeed provides the REST client for the external spot price feed.
//
// Endpoints (Binance-compatible):
//   - Production: https://api.binance.com/api/v3
//   - GET /ticker/price?symbol=BTCUSDT -> {"symbol":"BTCUSDT","price":"97123.45000000"}
//
// Prices are decoded as exact decimals. Every failure is returned as an error;
// the client never substitutes a placeholder price.
package pricefeed
