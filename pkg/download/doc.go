// Package download fetches filings and fact documents and saves them under a
// download folder:
//
//	{root}/sec-edgar-filings/{symbol}-{cik}/{form}/{accession}/full-submission.txt
//	{root}/sec-edgar-filings/{symbol}-{cik}/{form}/{accession}/primary-document.html
//	{root}/sec-edgar-facts/{symbol}-facts-{date}.json
//	{root}/sec-edgar-facts/all_companies_facts-{date}.zip
//
// Filings of one company are downloaded sequentially. A filing that fails is
// logged and counted as skipped and the remaining filings are still
// attempted. Batch operations over several companies never fail as a whole;
// they report which companies were saved and which were skipped.
package download
