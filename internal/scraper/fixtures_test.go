package scraper

const indexHTML = `<html><body>
<div class="header">ネットワークスペシャリスト過去問道場</div>
<div class="ansbg">本日の一問</div><div class="img_margin"><a href="kakomon/r06_haru/am2_7.html">令和6年春期 午前II 問7</a></div>
</body></html>`

const indexMovedHTML = `<html><body>
<div class="today"><a href="kakomon/r06_haru/am2_7.html">令和6年春期 午前II 問7</a></div>
</body></html>`

// four text options, the third marked correct
const mixedTextHTML = `<html><body>
<h3 class="qno">問7</h3>
<div>OSPFに関する記述のうち，適切なものはどれか。</div>
<div>距離ベクトル型である</div>
<div class="selectBtn"><button>ア</button></div>
<div>ホップ数のみで経路を選ぶ</div>
<div class="selectBtn"><button>イ</button></div>
<div>リンク状態型である</div>
<div class="selectBtn" id="answerChar"><button>ウ</button></div>
<div>RIPの改良版である</div>
<div class="selectBtn"><button>エ</button></div>
</body></html>`

// a diagram in the body, two text options and two image options
const mixedImageHTML = `<html><body>
<div class="qno">問3</div>
<div>図のネットワーク構成で，PC1からPC2への経路として適切なものはどれか。<div class="img_margin"><img src="img/am2_3_q.png"></div></div>
<div>R1を経由する</div>
<div class="selectBtn"><button>ア</button></div>
<div>R2を経由する</div>
<div class="selectBtn"><button>イ</button></div>
<div><img src="img/am2_3_u.png"></div>
<div class="selectBtn" id=""><button>ウ</button></div>
<div><img src="img/am2_3_e.png"></div>
<div class="selectBtn"><button>エ</button></div>
</body></html>`

const listHTML = `<html><body>
<div class="qno">問2</div>
<div>コネクションレス型のトランスポート層プロトコルはどれか。</div>
<ul class="selectList">
<li><button>ア</button> TCP</li>
<li><button id="correct">イ</button> UDP</li>
<li><button>ウ</button> ICMP</li>
<li><button>エ</button> ARP</li>
</ul>
</body></html>`

const noMarkerHTML = `<html><body>
<div class="qno">問9</div>
<div>正解の印がない問題</div>
<div>A</div><div class="selectBtn"><button>ア</button></div>
<div>B</div><div class="selectBtn"><button>イ</button></div>
</body></html>`

const noOptionsHTML = `<html><body>
<div class="qno">問1</div>
<div>選択肢のない問題</div>
</body></html>`
