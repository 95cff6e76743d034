package crawler

// extractJS collects visible text-bearing nodes. Positions are document
// coordinates, i.e. viewport coordinates with the page scrolled to the top.
// A node is clickable if it or one of its three nearest ancestors is an
// actionable control.
const extractJS = `() => {
	const actionable = 'a[href], button, [role="button"], [role="link"], [role="tab"], input[type="submit"], input[type="button"], summary, [onclick]';
	const elements = [];
	const seen = new Set();

	function visible(el) {
		if (!el.getClientRects().length) return false;
		const style = window.getComputedStyle(el);
		return style.visibility !== 'hidden' && style.display !== 'none';
	}

	function ownText(el) {
		if (el.tagName === 'INPUT') return el.value || '';
		let text = '';
		el.childNodes.forEach(n => { if (n.nodeType === Node.TEXT_NODE) text += n.textContent; });
		return text;
	}

	function clickable(el) {
		let cur = el;
		for (let depth = 0; cur && depth <= 3; depth++, cur = cur.parentElement) {
			if (cur.matches(actionable)) return true;
			if (window.getComputedStyle(cur).cursor === 'pointer') return true;
		}
		return false;
	}

	function tagOf(el) {
		if (el.closest('a')) return 'link';
		if (el.closest('button, [role="button"], input[type="submit"], input[type="button"]')) return 'button';
		if (/^H[1-6]$/.test(el.tagName)) return 'heading';
		if (el.tagName === 'INPUT' || el.tagName === 'TEXTAREA') return 'input';
		return 'generic';
	}

	document.querySelectorAll('body *').forEach(el => {
		if (['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE'].includes(el.tagName)) return;
		const text = ownText(el).replace(/\s+/g, ' ').trim();
		if (!text || text.length > 200) return;
		if (!visible(el)) return;

		const rect = el.getBoundingClientRect();
		const x = Math.round(rect.left + window.scrollX);
		const y = Math.round(rect.top + window.scrollY);
		const key = text + '|' + x + '|' + y;
		if (seen.has(key)) return;
		seen.add(key);

		elements.push({ text, tag: tagOf(el), x, y, clickable: clickable(el) });
	});

	return {
		url: window.location.href,
		title: document.title,
		text: (document.body && document.body.innerText) || '',
		elements
	};
}`

// clickJS finds the node captured at a document position (matching its
// text, falling back to whatever is under the point), scrolls it into view
// and clicks its nearest actionable ancestor. It reports the viewport point
// it clicked.
const clickJS = `(text, x, y) => {
	const actionable = 'a[href], button, [role="button"], [role="link"], [role="tab"], input[type="submit"], input[type="button"], summary, label, [onclick]';
	window.scrollTo(0, 0);

	let hit = null;
	for (const el of document.querySelectorAll('body *')) {
		const own = el.tagName === 'INPUT' ? (el.value || '') :
			Array.from(el.childNodes).filter(n => n.nodeType === Node.TEXT_NODE).map(n => n.textContent).join('');
		if (own.replace(/\s+/g, ' ').trim() !== text) continue;
		const rect = el.getBoundingClientRect();
		if (Math.round(rect.left + window.scrollX) === x && Math.round(rect.top + window.scrollY) === y) {
			hit = el;
			break;
		}
	}
	if (!hit) {
		window.scrollTo(0, Math.max(0, y - window.innerHeight / 2));
		hit = document.elementFromPoint(x - window.scrollX + 1, y - window.scrollY + 1);
	}
	if (!hit) return { ok: false };

	const target = hit.closest(actionable) || hit;
	target.scrollIntoView({ block: 'center' });
	const rect = target.getBoundingClientRect();
	target.click();
	return { ok: true, x: rect.left + rect.width / 2, y: rect.top + rect.height / 2 };
}`
