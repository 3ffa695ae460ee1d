package ai

// analyzeReportPrompt asks for a structured analysis of a single normalized
// report. The report is appended as JSON.
const analyzeReportPrompt = `You are an expert in email authentication and DMARC analysis.

Given a DMARC aggregate report in JSON format, analyze it and produce a JSON-structured summary.
The goal is to provide a concise analysis of the report, specifically spotting problems that are
included in the report.

Return ONLY valid JSON in this exact format:

{
    "summary": {
        "total_messages": number,
        "passing_messages": number,
        "failing_messages": number,
        "failure_details": string[],
        "other_issues": string[]
    },
    "failures": {
        "ips": [
            {
                "ip": string,
                "count": number,
                "spf_status": "pass" | "fail" | "neutral",
                "dkim_status": "pass" | "fail" | "neutral",
                "alignment": {
                    "dkim_aligned": boolean,
                    "spf_aligned": boolean
                },
                "from_domain": string
            }
        ]
    },
    "remediation": {
        "suggestions": string[],
        "priority": "low" | "medium" | "high"
    },
    "conclusion": {
        "status": "satisfactory" | "needs_attention" | "critical",
        "message": string
    }
}

Here is the DMARC report:

`

// summarizeAnalysesPrompt folds one or more per-report analyses into a single
// digest. The analyses are appended after the prompt.
const summarizeAnalysesPrompt = `You are a concise and accurate summarizer.

You will be given 1 or more DMARC analysis reports. Return ONLY valid JSON in this exact format:

{
    "analysis_summary": {
        "total_reports": number,
        "reports_with_issues": number,
        "failure_details": string[],
        "health_status": "good" | "needs_attention" | "critical",
        "timestamp": string
    },
    "metrics": {
        "success_rate": number,
        "health_score": number
    }
}

Raw Analysis:

`
